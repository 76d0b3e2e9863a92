package models

// NumFeatures is the length of every feature vector
const NumFeatures = 8

// Feature positions inside a FeatureVector. The order is shared by the
// feature builder, the scaler and both models.
const (
	FeatSoilMoistureAvg = iota
	FeatTemperature
	FeatHumidity
	FeatLightIntensity
	FeatRainfallForecast
	FeatDaysSinceIrrigation
	FeatCropStage
	FeatSoilType
)

// FeatureNames lists feature names in vector order
var FeatureNames = [NumFeatures]string{
	"soil_moisture_avg",
	"temperature",
	"humidity",
	"light_intensity",
	"rainfall_forecast",
	"days_since_last_irrigation",
	"crop_stage",
	"soil_type",
}

// FeatureVector is the fixed-order numeric model input
type FeatureVector [NumFeatures]float64

// Slice returns a copy of the vector as a slice
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// Map returns the vector keyed by feature name
func (v FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, NumFeatures)
	for i, name := range FeatureNames {
		out[name] = v[i]
	}
	return out
}

// RawRecord is one historical record as fetched from the record store.
// Fields carries the loosely typed values keyed by their source names.
type RawRecord struct {
	ID     string
	Fields map[string]any
}

// TrainingRow is a feature vector with its irrigation duration label (minutes)
type TrainingRow struct {
	ID       string
	Features FeatureVector
	Duration float64
}

// Dataset is an ordered set of training rows, oldest first
type Dataset struct {
	Rows []TrainingRow
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Features returns the feature matrix as row slices
func (d *Dataset) Features() [][]float64 {
	out := make([][]float64, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row.Features.Slice()
	}
	return out
}

// Labels returns the duration labels in row order
func (d *Dataset) Labels() []float64 {
	out := make([]float64, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row.Duration
	}
	return out
}
