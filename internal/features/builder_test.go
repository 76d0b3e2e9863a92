package features

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

func TestBuildExampleRequest(t *testing.T) {
	sensor := models.SensorData{
		SoilMoisture:   models.MoistureReadings{25, 30, 28, 32, 27},
		Temperature:    models.Float(29.5),
		Humidity:       models.Float(65.0),
		LightIntensity: models.Float(850),
	}
	weather := models.WeatherData{Rainfall24h: models.Float(0)}
	crop := models.CropInfo{
		GrowthStage:         models.Float(3),
		DaysSinceIrrigation: models.Float(2),
		SoilType:            models.Float(2),
	}

	v, err := Build(sensor, weather, crop, InferenceDefaults())
	require.NoError(t, err)

	expected := []float64{28.4, 29.5, 65.0, 850, 0, 2, 3, 2}
	require.Len(t, v.Slice(), models.NumFeatures)
	for i, want := range expected {
		assert.InDelta(t, want, v[i], 1e-9, "feature %s", models.FeatureNames[i])
	}
}

func TestBuildFromJSONRequest(t *testing.T) {
	payload := `{
		"sensor_data": {"soil_moisture": 41, "temperature": 22, "humidity": 70, "lightIntensity": 300, "isRaining": true},
		"weather_data": {"rainfall_forecast": 3.5},
		"crop_info": {"crop_stage": 1, "days_since_last_irrigation": 4}
	}`

	var req models.PredictionRequest
	require.NoError(t, json.Unmarshal([]byte(payload), &req))

	v, err := BuildRequest(&req, InferenceDefaults())
	require.NoError(t, err)

	assert.Equal(t, models.FeatureVector{41, 22, 70, 300, 3.5, 4, 1, 2}, v)
	assert.True(t, req.SensorData.Raining())
}

func TestBuildAppliesDefaults(t *testing.T) {
	sensor := models.SensorData{
		SoilMoisture: models.MoistureReadings{30},
		Temperature:  models.Float(20),
		Humidity:     models.Float(50),
	}

	inference, err := Build(sensor, models.WeatherData{}, models.CropInfo{}, InferenceDefaults())
	require.NoError(t, err)
	assert.Equal(t, models.FeatureVector{30, 20, 50, 0, 0, 1, 2, 2}, inference)

	cleaning, err := Build(sensor, models.WeatherData{}, models.CropInfo{}, CleaningDefaults())
	require.NoError(t, err)
	assert.Equal(t, models.FeatureVector{30, 20, 50, 0, 0, 0, 0, 0}, cleaning)
}

func TestBuildMissingRequiredInput(t *testing.T) {
	complete := models.SensorData{
		SoilMoisture: models.MoistureReadings{30},
		Temperature:  models.Float(20),
		Humidity:     models.Float(50),
	}

	tests := []struct {
		name   string
		mutate func(s *models.SensorData)
		field  string
	}{
		{"no soil moisture", func(s *models.SensorData) { s.SoilMoisture = nil }, "soil_moisture"},
		{"no temperature", func(s *models.SensorData) { s.Temperature = nil }, "temperature"},
		{"no humidity", func(s *models.SensorData) { s.Humidity = nil }, "humidity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sensor := complete
			tt.mutate(&sensor)

			_, err := Build(sensor, models.WeatherData{}, models.CropInfo{}, InferenceDefaults())
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrMissingInput)

			var missing *models.MissingInputError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.field, missing.Field)
		})
	}
}

func TestMoistureReadingsDecode(t *testing.T) {
	var s models.SensorData
	require.NoError(t, json.Unmarshal([]byte(`{"soil_moisture": [10, 20]}`), &s))
	assert.Equal(t, models.MoistureReadings{10, 20}, s.SoilMoisture)

	require.NoError(t, json.Unmarshal([]byte(`{"soil_moisture": 12.5}`), &s))
	assert.Equal(t, models.MoistureReadings{12.5}, s.SoilMoisture)

	assert.Error(t, json.Unmarshal([]byte(`{"soil_moisture": "wet"}`), &s))
}
