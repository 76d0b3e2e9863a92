package features

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

func newTestCleaner() *Cleaner {
	return NewCleaner(CleaningDefaults(), zap.NewNop())
}

func TestCleanCoercesAndDefaults(t *testing.T) {
	records := []models.RawRecord{
		{ID: "a", Fields: map[string]any{
			"soil_moisture":       []any{20.0, "30", json.Number("40")},
			"temperature":         "25.5",
			"humidity":            60,
			"lightIntensity":      700.0,
			"isRaining":           false,
			"irrigation_duration": 12.0,
		}},
		{ID: "b", Fields: map[string]any{
			"soil_moisture":              35.0,
			"temperature":                30.0,
			"humidity":                   55.0,
			"light_intensity":            "bright",
			"rainfall_forecast":          2.0,
			"days_since_last_irrigation": 3,
			"crop_stage":                 "2",
			"soil_type":                  1.0,
			"irrigation_duration":        "8",
		}},
	}

	ds, err := newTestCleaner().Clean(records)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	assert.Equal(t, "a", ds.Rows[0].ID)
	assert.Equal(t, models.FeatureVector{30, 25.5, 60, 700, 0, 0, 0, 0}, ds.Rows[0].Features)
	assert.Equal(t, 12.0, ds.Rows[0].Duration)

	assert.Equal(t, "b", ds.Rows[1].ID)
	assert.Equal(t, models.FeatureVector{35, 30, 55, 0, 2, 3, 2, 1}, ds.Rows[1].Features)
	assert.Equal(t, 8.0, ds.Rows[1].Duration)
}

func TestCleanDropsRowsMissingRequiredFields(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"soil_moisture":       30.0,
			"temperature":         20.0,
			"humidity":            50.0,
			"irrigation_duration": 10.0,
		}
	}

	tests := []struct {
		name   string
		mutate func(f map[string]any)
	}{
		{"no soil moisture", func(f map[string]any) { delete(f, "soil_moisture") }},
		{"empty soil moisture list", func(f map[string]any) { f["soil_moisture"] = []any{} }},
		{"partly unparseable soil moisture list", func(f map[string]any) { f["soil_moisture"] = []any{30.0, "dry", 40.0} }},
		{"unparseable temperature", func(f map[string]any) { f["temperature"] = "hot" }},
		{"nil humidity", func(f map[string]any) { f["humidity"] = nil }},
		{"no label", func(f map[string]any) { delete(f, "irrigation_duration") }},
		{"negative label", func(f map[string]any) { f["irrigation_duration"] = -1.0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := base()
			tt.mutate(bad)

			ds, err := newTestCleaner().Clean([]models.RawRecord{
				{ID: "1", Fields: base()},
				{ID: "2", Fields: bad},
				{ID: "3", Fields: base()},
			})
			require.NoError(t, err)
			require.Equal(t, 2, ds.Len())
			assert.Equal(t, "1", ds.Rows[0].ID)
			assert.Equal(t, "3", ds.Rows[1].ID)
		})
	}
}

func TestCleanEmptyInput(t *testing.T) {
	_, err := newTestCleaner().Clean(nil)
	assert.ErrorIs(t, err, models.ErrNoData)

	_, err = newTestCleaner().Clean(OrderByID(map[string]map[string]any{}))
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestCleanAllRowsFilteredIsNotAnError(t *testing.T) {
	ds, err := newTestCleaner().Clean([]models.RawRecord{
		{ID: "1", Fields: map[string]any{"temperature": 20.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
}

func TestOrderByIDKeepsInsertionOrder(t *testing.T) {
	row := func(d float64) map[string]any {
		return map[string]any{
			"soil_moisture":       30.0,
			"temperature":         20.0,
			"humidity":            50.0,
			"irrigation_duration": d,
		}
	}

	records := OrderByID(map[string]map[string]any{
		"-Nc3": row(3),
		"-Na1": row(1),
		"-Nb2": row(2),
	})
	require.Len(t, records, 3)
	assert.Equal(t, "-Na1", records[0].ID)

	ds, err := newTestCleaner().Clean(records)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, ds.Labels())
}

func TestCleanIsIdempotent(t *testing.T) {
	records := []models.RawRecord{
		{ID: "r1", Fields: map[string]any{
			"soil_moisture": []any{10.0, 20.0}, "temperature": 21.0, "humidity": 40.0,
			"lightIntensity": 120.0, "crop_stage": 1.0, "irrigation_duration": 15.0,
		}},
		{ID: "r2", Fields: map[string]any{
			"soil_moisture": 55.0, "temperature": "19", "humidity": 80.0,
			"days_since_irrigation": 5.0, "soil_type": 3.0, "irrigation_duration": 0.0,
		}},
		{ID: "r3", Fields: map[string]any{"temperature": 25.0}},
	}

	cleaner := newTestCleaner()
	first, err := cleaner.Clean(records)
	require.NoError(t, err)

	second, err := cleaner.Clean(rawFromDataset(first))
	require.NoError(t, err)

	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.Rows, second.Rows)
}

func rawFromDataset(ds *models.Dataset) []models.RawRecord {
	out := make([]models.RawRecord, 0, ds.Len())
	for _, row := range ds.Rows {
		fields := make(map[string]any, models.NumFeatures+1)
		for name, v := range row.Features.Map() {
			fields[name] = v
		}
		fields["irrigation_duration"] = row.Duration
		out = append(out, models.RawRecord{ID: row.ID, Fields: fields})
	}
	return out
}

func TestCleanPrefersDaysSinceLastIrrigation(t *testing.T) {
	ds, err := newTestCleaner().Clean([]models.RawRecord{
		{ID: "1", Fields: map[string]any{
			"soil_moisture":              30.0,
			"temperature":                20.0,
			"humidity":                   50.0,
			"days_since_irrigation":      1.0,
			"days_since_last_irrigation": 4.0,
			"irrigation_duration":        10.0,
		}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, 4.0, ds.Rows[0].Features[models.FeatDaysSinceIrrigation])
}
