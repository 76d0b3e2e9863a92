// Package features turns raw sensor, weather and crop inputs into the
// fixed-order feature vectors consumed by the scaler and the models.
package features

import (
	"gonum.org/v1/gonum/stat"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// Defaults holds the values used for optional inputs that are absent.
// Inference and cleaning use different defaults; both are explicit.
type Defaults struct {
	LightIntensity      float64 `yaml:"light_intensity"`
	RainfallForecast    float64 `yaml:"rainfall_forecast"`
	DaysSinceIrrigation float64 `yaml:"days_since_irrigation"`
	CropStage           float64 `yaml:"crop_stage"`
	SoilType            float64 `yaml:"soil_type"`
}

// InferenceDefaults returns the defaults applied to live prediction requests
func InferenceDefaults() Defaults {
	return Defaults{
		LightIntensity:      0,
		RainfallForecast:    0,
		DaysSinceIrrigation: 1,
		CropStage:           2,
		SoilType:            2,
	}
}

// CleaningDefaults returns the defaults applied to historical records
func CleaningDefaults() Defaults {
	return Defaults{}
}

// Build converts one live input into a feature vector. Soil moisture,
// temperature and humidity are required; everything else falls back to d.
func Build(sensor models.SensorData, weather models.WeatherData, crop models.CropInfo, d Defaults) (models.FeatureVector, error) {
	var v models.FeatureVector

	moisture, ok := MoistureAverage(sensor.SoilMoisture)
	if !ok {
		return v, &models.MissingInputError{Field: "soil_moisture"}
	}
	if sensor.Temperature == nil {
		return v, &models.MissingInputError{Field: "temperature"}
	}
	if sensor.Humidity == nil {
		return v, &models.MissingInputError{Field: "humidity"}
	}

	v[models.FeatSoilMoistureAvg] = moisture
	v[models.FeatTemperature] = *sensor.Temperature
	v[models.FeatHumidity] = *sensor.Humidity
	v[models.FeatLightIntensity] = valueOr(sensor.Light(), d.LightIntensity)
	v[models.FeatRainfallForecast] = valueOr(weather.Rainfall(), d.RainfallForecast)
	v[models.FeatDaysSinceIrrigation] = valueOr(crop.DaysSince(), d.DaysSinceIrrigation)
	v[models.FeatCropStage] = valueOr(crop.Stage(), d.CropStage)
	v[models.FeatSoilType] = valueOr(crop.SoilType, d.SoilType)

	return v, nil
}

// BuildRequest is Build applied to the three groups of a request
func BuildRequest(req *models.PredictionRequest, d Defaults) (models.FeatureVector, error) {
	return Build(req.SensorData, req.WeatherData, req.CropInfo, d)
}

// MoistureAverage reduces readings to their arithmetic mean.
// It reports false when there are no readings.
func MoistureAverage(readings []float64) (float64, bool) {
	if len(readings) == 0 {
		return 0, false
	}
	return stat.Mean(readings, nil), true
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
