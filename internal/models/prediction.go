package models

import "time"

// Prediction is the recommendation emitted for one live request
type Prediction struct {
	PredictionID    string    `json:"prediction_id,omitempty"`
	PlotID          string    `json:"plot_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	NeedsIrrigation bool      `json:"needs_irrigation"`
	DurationMinutes int       `json:"duration_minutes"`
	Confidence      float64   `json:"confidence"` // 0-1
	Recommendations []string  `json:"recommendations"`

	// Available is false when no trained model was loaded; duration and
	// confidence are zero in that case.
	Available    bool     `json:"available"`
	Sources      []string `json:"sources,omitempty"` // models that voted
	ModelVersion string   `json:"model_version,omitempty"`
}

// PredictionLog is a stored prediction together with the features used
type PredictionLog struct {
	Prediction
	Features FeatureVector `json:"features"`
}

// SensorRecord is one persisted live reading. Labeled readings carry the
// applied irrigation duration and feed later training runs.
type SensorRecord struct {
	RecordID            string
	Collection          string
	PlotID              string
	RecordedAt          time.Time
	SoilMoisture        []float64
	Temperature         *float64
	Humidity            *float64
	LightIntensity      *float64
	IsRaining           *bool
	RainfallForecast    *float64
	DaysSinceIrrigation *float64
	CropStage           *float64
	SoilType            *float64
	IrrigationDuration  *float64
}

// TrainingRun summarizes one trainer invocation, successful or not
type TrainingRun struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       string // "success" or "failed"
	Error        string
	RowsRaw      int
	RowsClean    int
	TabularMSE   float64
	TabularR2    float64
	SequenceLoss float64
	SequenceUsed bool
	ModelVersion string
}

// Training run statuses
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)
