package trainer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/artifacts"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

type fakeSource struct {
	records []models.RawRecord
	err     error
	paths   []string
}

func (f *fakeSource) GetAllRecords(ctx context.Context, path string) ([]models.RawRecord, error) {
	f.paths = append(f.paths, path)
	return f.records, f.err
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []models.TrainingRun
}

func (f *fakeRecorder) SaveTrainingRun(ctx context.Context, run *models.TrainingRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRecorder) last() models.TrainingRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[len(f.runs)-1]
}

// seededRecords mimics the generator that seeds the record store
func seededRecords(n int) []models.RawRecord {
	rng := rand.New(rand.NewSource(21))
	records := make([]models.RawRecord, n)
	for i := range records {
		moisture := 10 + rng.Float64()*60
		records[i] = models.RawRecord{
			ID: fmt.Sprintf("rec-%04d", i),
			Fields: map[string]any{
				"soil_moisture":              []any{moisture - 1, moisture, moisture + 1},
				"temperature":                20 + rng.Float64()*15,
				"humidity":                   40 + rng.Float64()*40,
				"lightIntensity":             rng.Float64() * 1000,
				"isRaining":                  rng.Intn(5) == 0,
				"rainfall_forecast":          rng.Float64() * 10,
				"days_since_last_irrigation": float64(rng.Intn(7)),
				"crop_stage":                 float64(1 + rng.Intn(4)),
				"soil_type":                  float64(1 + rng.Intn(3)),
				"irrigation_duration":        (70 - moisture) / 2,
			},
		}
	}
	return records
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Forest.NumTrees = 10
	cfg.Sequence.Window = 4
	cfg.Sequence.Hidden = 4
	cfg.Sequence.Dense = 3
	cfg.Sequence.Epochs = 3
	return cfg
}

func TestTrainerRun(t *testing.T) {
	source := &fakeSource{records: seededRecords(40)}
	recorder := &fakeRecorder{}
	store := artifacts.NewStore(t.TempDir(), zap.NewNop())

	result, err := New(source, store, recorder, testConfig(), zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"sensorData"}, source.paths)
	assert.Equal(t, 40, result.RowsRaw)
	assert.Equal(t, 40, result.RowsClean)
	assert.NotEmpty(t, result.Version)
	require.NotNil(t, result.Tabular)
	assert.Equal(t, 32, result.Tabular.TrainRows)
	assert.Equal(t, 8, result.Tabular.TestRows)
	require.NotNil(t, result.Sequence)
	assert.Empty(t, result.SequenceSkipped)

	bundle, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, result.Version, bundle.Version())
	assert.True(t, bundle.Tabular.Trained())
	assert.True(t, bundle.Sequence.Trained())

	run := recorder.last()
	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Equal(t, result.RunID, run.RunID)
	assert.Equal(t, result.Version, run.ModelVersion)
	assert.True(t, run.SequenceUsed)
	assert.Equal(t, 40, run.RowsClean)
}

func TestTrainerInsufficientDataKeepsArtifacts(t *testing.T) {
	store := artifacts.NewStore(t.TempDir(), zap.NewNop())
	recorder := &fakeRecorder{}

	good, err := New(&fakeSource{records: seededRecords(30)}, store, recorder, testConfig(), nil).Run(context.Background())
	require.NoError(t, err)

	records := seededRecords(4)
	records = append(records, models.RawRecord{ID: "bad", Fields: map[string]any{"temperature": 20.0}})
	_, err = New(&fakeSource{records: records}, store, recorder, testConfig(), nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	var insufficient *models.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 4, insufficient.Have)
	assert.Equal(t, 5, insufficient.Need)

	bundle, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, good.Version, bundle.Version())

	run := recorder.last()
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, 5, run.RowsRaw)
	assert.Equal(t, 4, run.RowsClean)
	assert.NotEmpty(t, run.Error)
}

func TestTrainerThreeRecordsFails(t *testing.T) {
	store := artifacts.NewStore(t.TempDir(), nil)
	_, err := New(&fakeSource{records: seededRecords(3)}, store, nil, testConfig(), nil).Run(context.Background())
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, loadErr := store.Load()
	assert.ErrorIs(t, loadErr, models.ErrArtifactLoad)
}

func TestTrainerSkipsSequenceWithShortHistory(t *testing.T) {
	cfg := testConfig()
	cfg.Sequence.Window = 12
	store := artifacts.NewStore(t.TempDir(), nil)

	result, err := New(&fakeSource{records: seededRecords(10)}, store, nil, cfg, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result.Sequence)
	assert.NotEmpty(t, result.SequenceSkipped)

	bundle, err := store.Load()
	require.NoError(t, err)
	assert.False(t, bundle.Manifest.HasSequence)
	assert.Nil(t, bundle.Sequence)
}

func TestTrainerSequenceDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.TrainSequence = false

	result, _, err := New(nil, nil, nil, cfg, nil).Fit(context.Background(), mustClean(t, seededRecords(20)))
	require.NoError(t, err)
	assert.Nil(t, result.Sequence)
	assert.Equal(t, "disabled", result.SequenceSkipped)
}

func TestTrainerSourceErrors(t *testing.T) {
	recorder := &fakeRecorder{}
	store := artifacts.NewStore(t.TempDir(), nil)

	_, err := New(&fakeSource{err: errors.New("connection refused")}, store, recorder, testConfig(), nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, models.RunStatusFailed, recorder.last().Status)

	_, err = New(&fakeSource{}, store, recorder, testConfig(), nil).Run(context.Background())
	assert.ErrorIs(t, err, models.ErrNoData)
}

func mustClean(t *testing.T, records []models.RawRecord) *models.Dataset {
	t.Helper()
	tr := New(nil, nil, nil, testConfig(), nil)
	ds, err := tr.cleaner.Clean(records)
	require.NoError(t, err)
	return ds
}
