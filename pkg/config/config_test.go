package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MODEL_DIR", "")
	t.Setenv("HISTORY_SIZE", "")
	t.Setenv("RETRAIN_SCHEDULE", "")

	cfg := Load()
	assert.Equal(t, "./models", cfg.ModelDir)
	assert.Equal(t, "sensorData", cfg.RecordPath)
	assert.Equal(t, "irrigation/+/request", cfg.MQTTTopicRequest)
	assert.Equal(t, 48, cfg.HistorySize)
	assert.Empty(t, cfg.RetrainSchedule)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MODEL_DIR", "/var/lib/irrigation/models")
	t.Setenv("HISTORY_SIZE", "96")
	t.Setenv("RETRAIN_SCHEDULE", "0 3 * * *")
	t.Setenv("ENVIRONMENT", "development")

	cfg := Load()
	assert.Equal(t, "/var/lib/irrigation/models", cfg.ModelDir)
	assert.Equal(t, 96, cfg.HistorySize)
	assert.Equal(t, "0 3 * * *", cfg.RetrainSchedule)
	assert.True(t, cfg.IsDevelopment())
}

func TestGetEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("HISTORY_SIZE", "lots")
	assert.Equal(t, 48, getEnvInt("HISTORY_SIZE", 48))
}

func TestLoadPipelineDefaults(t *testing.T) {
	t.Setenv("TRAIN_SEQUENCE", "")
	t.Setenv("PREDICTION_THRESHOLD_MINUTES", "")

	p, err := LoadPipeline("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPipeline(), p)
	assert.Equal(t, 100, p.Forest.NumTrees)
	assert.Equal(t, 12, p.Sequence.Window)
	assert.Equal(t, 1.0, p.InferenceDefaults.DaysSinceIrrigation)
	assert.Equal(t, 0.0, p.CleaningDefaults.DaysSinceIrrigation)
}

func TestLoadPipelineFile(t *testing.T) {
	t.Setenv("TRAIN_SEQUENCE", "")
	t.Setenv("PREDICTION_THRESHOLD_MINUTES", "")

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := `
inference_defaults:
  days_since_irrigation: 0
forest:
  num_trees: 50
sequence:
  window: 24
prediction:
  threshold_minutes: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadPipeline(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.InferenceDefaults.DaysSinceIrrigation)
	assert.Equal(t, 2.0, p.InferenceDefaults.CropStage)
	assert.Equal(t, 50, p.Forest.NumTrees)
	assert.Equal(t, 10, p.Forest.MaxDepth)
	assert.Equal(t, 24, p.Sequence.Window)
	assert.Equal(t, 50, p.Sequence.Hidden)
	assert.Equal(t, 8.0, p.Prediction.ThresholdMinutes)
	assert.Equal(t, 0.9, p.Prediction.Confidence)

	pc := p.PredictorConfig()
	assert.Equal(t, 8.0, pc.ThresholdMinutes)
	assert.Equal(t, 0.0, pc.Defaults.DaysSinceIrrigation)

	tc := p.TrainerConfig("records")
	assert.Equal(t, "records", tc.RecordPath)
	assert.Equal(t, 24, tc.Sequence.Window)
}

func TestLoadPipelineEnvOverrides(t *testing.T) {
	t.Setenv("TRAIN_SEQUENCE", "false")
	t.Setenv("PREDICTION_THRESHOLD_MINUTES", "10")

	p, err := LoadPipeline("")
	require.NoError(t, err)
	assert.False(t, p.TrainSequence)
	assert.Equal(t, 10.0, p.Prediction.ThresholdMinutes)
}

func TestLoadPipelineInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("forest: [1, 2"), 0o644))
	_, err := LoadPipeline(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("sequence:\n  dropout: 1.5\n"), 0o644))
	_, err = LoadPipeline(invalid)
	assert.ErrorContains(t, err, "dropout")

	_, err = LoadPipeline(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
