package models

import "time"

// NewSensorRecord flattens a live request into a storable reading
func NewSensorRecord(id, collection string, req *PredictionRequest) *SensorRecord {
	recordedAt := req.Timestamp
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	rec := &SensorRecord{
		RecordID:            id,
		Collection:          collection,
		PlotID:              req.PlotID,
		RecordedAt:          recordedAt,
		SoilMoisture:        append([]float64(nil), req.SensorData.SoilMoisture...),
		Temperature:         req.SensorData.Temperature,
		Humidity:            req.SensorData.Humidity,
		LightIntensity:      req.SensorData.Light(),
		RainfallForecast:    req.WeatherData.Rainfall(),
		DaysSinceIrrigation: req.CropInfo.DaysSince(),
		CropStage:           req.CropInfo.Stage(),
		SoilType:            req.CropInfo.SoilType,
		IrrigationDuration:  req.IrrigationDuration,
	}
	if req.SensorData.IsRaining != nil || req.SensorData.IsRainingAlias != nil {
		rec.IsRaining = Bool(req.SensorData.Raining())
	}
	return rec
}

// Request rebuilds the live request a stored reading came from
func (r *SensorRecord) Request() *PredictionRequest {
	return &PredictionRequest{
		PlotID:    r.PlotID,
		Timestamp: r.RecordedAt,
		SensorData: SensorData{
			SoilMoisture:   MoistureReadings(r.SoilMoisture),
			Temperature:    r.Temperature,
			Humidity:       r.Humidity,
			LightIntensity: r.LightIntensity,
			IsRaining:      r.IsRaining,
		},
		WeatherData: WeatherData{
			RainfallForecast: r.RainfallForecast,
		},
		CropInfo: CropInfo{
			CropStage:           r.CropStage,
			DaysSinceIrrigation: r.DaysSinceIrrigation,
			SoilType:            r.SoilType,
		},
		IrrigationDuration: r.IrrigationDuration,
	}
}

// Raw renders the reading as a loosely typed historical record. Absent
// values are left out so the cleaner applies its defaults.
func (r *SensorRecord) Raw() RawRecord {
	fields := make(map[string]any, 10)
	if len(r.SoilMoisture) > 0 {
		fields["soil_moisture"] = append([]float64(nil), r.SoilMoisture...)
	}
	putFloat(fields, "temperature", r.Temperature)
	putFloat(fields, "humidity", r.Humidity)
	putFloat(fields, "light_intensity", r.LightIntensity)
	putFloat(fields, "rainfall_forecast", r.RainfallForecast)
	putFloat(fields, "days_since_irrigation", r.DaysSinceIrrigation)
	putFloat(fields, "crop_stage", r.CropStage)
	putFloat(fields, "soil_type", r.SoilType)
	putFloat(fields, "irrigation_duration", r.IrrigationDuration)
	if r.IsRaining != nil {
		fields["is_raining"] = *r.IsRaining
	}
	return RawRecord{ID: r.RecordID, Fields: fields}
}

func putFloat(fields map[string]any, key string, v *float64) {
	if v != nil {
		fields[key] = *v
	}
}
