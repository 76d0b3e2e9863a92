package predictor

import (
	"fmt"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// Recommendation texts
const (
	RecNoModel          = "No trained model available - irrigation prediction skipped"
	RecCriticalMoisture = "Critical: Soil moisture very low - irrigate immediately"
	RecLowMoisture      = "Soil moisture low - irrigate soon"
	RecAdequateMoisture = "Soil moisture adequate - no irrigation needed now"
	RecHighTemperature  = "High temperature - consider extra watering"
	RecRainDetected     = "Rain detected - consider reducing irrigation duration"
)

// recommendations lists advice in a fixed order: model availability, soil
// moisture, temperature, rain, then the predicted schedule.
func recommendations(req *models.PredictionRequest, vec models.FeatureVector, pred *models.Prediction, cfg Config) []string {
	var recs []string
	if !pred.Available {
		recs = append(recs, RecNoModel)
	}

	switch moisture := vec[models.FeatSoilMoistureAvg]; {
	case moisture < cfg.CriticalMoisture:
		recs = append(recs, RecCriticalMoisture)
	case moisture < cfg.LowMoisture:
		recs = append(recs, RecLowMoisture)
	default:
		recs = append(recs, RecAdequateMoisture)
	}

	if vec[models.FeatTemperature] > cfg.HighTemperature {
		recs = append(recs, RecHighTemperature)
	}

	rainfall := vec[models.FeatRainfallForecast]
	switch {
	case req.SensorData.Raining():
		recs = append(recs, RecRainDetected)
	case rainfall > cfg.HeavyRainfallMM:
		recs = append(recs, fmt.Sprintf("Rain expected (%.1f mm) - consider postponing irrigation", rainfall))
	}

	if pred.Available {
		if pred.NeedsIrrigation {
			recs = append(recs, fmt.Sprintf("Irrigate for %d minutes", pred.DurationMinutes))
		} else {
			recs = append(recs, "Predicted duration below threshold - skip this cycle")
		}
	}
	return recs
}
