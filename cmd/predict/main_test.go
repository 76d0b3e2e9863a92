package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestArgument(t *testing.T) {
	req, err := readRequest(`{"sensor_data": {"soil_moisture": [28.4, 30.1], "temperature": 29.5, "humidity": 45}, "weather_data": {"rainfall_24h": 2}}`, nil)
	require.NoError(t, err)
	assert.Len(t, req.SensorData.SoilMoisture, 2)
	assert.Equal(t, 2.0, *req.WeatherData.Rainfall())
}

func TestReadRequestStdin(t *testing.T) {
	req, err := readRequest("-", strings.NewReader(`{"sensor_data": {"soil_moisture": 40}}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{40}, []float64(req.SensorData.SoilMoisture))
}

func TestReadRequestInvalid(t *testing.T) {
	_, err := readRequest(`{"sensor_data": `, nil)
	assert.Error(t, err)

	_, err = readRequest(`{"sensor_data": {"soil_moisture": "wet"}}`, nil)
	assert.Error(t, err)
}
