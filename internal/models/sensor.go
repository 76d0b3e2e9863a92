package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MoistureReadings holds one or more soil moisture readings (percent).
// It decodes from either a JSON number or an array of numbers.
type MoistureReadings []float64

// UnmarshalJSON accepts a scalar or an array
func (m *MoistureReadings) UnmarshalJSON(data []byte) error {
	var many []float64
	if err := json.Unmarshal(data, &many); err == nil {
		*m = many
		return nil
	}

	var one *float64
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("soil_moisture must be a number or an array of numbers: %w", err)
	}
	if one == nil {
		*m = nil
		return nil
	}
	*m = MoistureReadings{*one}
	return nil
}

// SensorData represents the live sensor group of a prediction request
type SensorData struct {
	SoilMoisture        MoistureReadings `json:"soil_moisture"`
	Temperature         *float64         `json:"temperature,omitempty"`     // Celsius
	Humidity            *float64         `json:"humidity,omitempty"`        // Percentage 0-100
	LightIntensity      *float64         `json:"light_intensity,omitempty"` // lux
	LightIntensityAlias *float64         `json:"lightIntensity,omitempty"`  // firmware spelling
	IsRaining           *bool            `json:"isRaining,omitempty"`       // rain sensor flag
	IsRainingAlias      *bool            `json:"is_raining,omitempty"`
}

// Light returns the first present light intensity alias
func (s SensorData) Light() *float64 {
	if s.LightIntensity != nil {
		return s.LightIntensity
	}
	return s.LightIntensityAlias
}

// Raining reports the rain flag, false when absent
func (s SensorData) Raining() bool {
	if s.IsRaining != nil {
		return *s.IsRaining
	}
	if s.IsRainingAlias != nil {
		return *s.IsRainingAlias
	}
	return false
}

// WeatherData represents the weather group of a prediction request
type WeatherData struct {
	Rainfall24h      *float64 `json:"rainfall_24h,omitempty"`      // mm expected over the next 24h
	RainfallForecast *float64 `json:"rainfall_forecast,omitempty"` // alias used by stored records
}

// Rainfall returns the first present rainfall alias
func (w WeatherData) Rainfall() *float64 {
	if w.Rainfall24h != nil {
		return w.Rainfall24h
	}
	return w.RainfallForecast
}

// CropInfo represents the crop-state group of a prediction request
type CropInfo struct {
	GrowthStage             *float64 `json:"growth_stage,omitempty"`
	CropStage               *float64 `json:"crop_stage,omitempty"`
	DaysSinceIrrigation     *float64 `json:"days_since_irrigation,omitempty"`
	DaysSinceLastIrrigation *float64 `json:"days_since_last_irrigation,omitempty"`
	SoilType                *float64 `json:"soil_type,omitempty"`
}

// Stage returns the first present growth stage alias
func (c CropInfo) Stage() *float64 {
	if c.GrowthStage != nil {
		return c.GrowthStage
	}
	return c.CropStage
}

// DaysSince returns the first present days-since-irrigation alias
func (c CropInfo) DaysSince() *float64 {
	if c.DaysSinceIrrigation != nil {
		return c.DaysSinceIrrigation
	}
	return c.DaysSinceLastIrrigation
}

// PredictionRequest is the nested live input published by a field controller
type PredictionRequest struct {
	PlotID      string      `json:"plot_id,omitempty"`
	Timestamp   time.Time   `json:"timestamp,omitempty"`
	SensorData  SensorData  `json:"sensor_data"`
	WeatherData WeatherData `json:"weather_data"`
	CropInfo    CropInfo    `json:"crop_info"`

	// IrrigationDuration is the applied duration in minutes when the controller
	// reports it; such readings become labeled training records.
	IrrigationDuration *float64 `json:"irrigation_duration,omitempty"`
}

// Float returns a pointer to v, handy for building requests in code
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v
func Bool(v bool) *bool {
	return &v
}
