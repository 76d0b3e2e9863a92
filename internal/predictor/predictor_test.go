package predictor

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/artifacts"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/ml"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

func randomRows(n int) [][]float64 {
	rng := rand.New(rand.NewSource(9))
	X := make([][]float64, n)
	for i := range X {
		X[i] = []float64{
			10 + rng.Float64()*50, 15 + rng.Float64()*20, 30 + rng.Float64()*60, rng.Float64() * 1000,
			rng.Float64() * 10, float64(rng.Intn(7)), float64(1 + rng.Intn(4)), float64(1 + rng.Intn(3)),
		}
	}
	return X
}

// constantBundle trains models whose every prediction is duration
func constantBundle(t *testing.T, duration float64, withSequence bool) *artifacts.Bundle {
	t.Helper()

	X := randomRows(30)
	y := make([]float64, len(X))
	for i := range y {
		y[i] = duration
	}

	scaler, err := ml.FitScaler(X)
	require.NoError(t, err)
	scaled, err := scaler.TransformAll(X)
	require.NoError(t, err)

	cfg := ml.DefaultForestConfig()
	cfg.NumTrees = 5
	tabular := ml.NewTabularRegressor(cfg, zap.NewNop())
	_, err = tabular.Train(context.Background(), scaled, y)
	require.NoError(t, err)

	b := &artifacts.Bundle{Scaler: scaler, Tabular: tabular}
	if withSequence {
		seqCfg := ml.DefaultSequenceConfig()
		seqCfg.Window = 3
		seqCfg.Hidden = 3
		seqCfg.Dense = 2
		seqCfg.Epochs = 2
		seq := ml.NewSequenceModel(seqCfg, models.NumFeatures, zap.NewNop())
		_, err := seq.Train(context.Background(), scaled, y)
		require.NoError(t, err)
		b.Sequence = seq
	}
	return b
}

func exampleRequest() *models.PredictionRequest {
	return &models.PredictionRequest{
		PlotID: "plot-1",
		SensorData: models.SensorData{
			SoilMoisture:   models.MoistureReadings{25, 30, 28, 32, 27},
			Temperature:    models.Float(29.5),
			Humidity:       models.Float(65.0),
			LightIntensity: models.Float(850),
		},
		WeatherData: models.WeatherData{Rainfall24h: models.Float(0)},
		CropInfo: models.CropInfo{
			GrowthStage:         models.Float(3),
			DaysSinceIrrigation: models.Float(2),
			SoilType:            models.Float(2),
		},
	}
}

func TestPredictWithoutModel(t *testing.T) {
	p := New(nil, DefaultConfig(), zap.NewNop())
	assert.False(t, p.Available())

	pred, vec, err := p.Predict(exampleRequest(), nil)
	require.NoError(t, err)

	assert.False(t, pred.Available)
	assert.False(t, pred.NeedsIrrigation)
	assert.Equal(t, 0, pred.DurationMinutes)
	assert.Equal(t, 0.0, pred.Confidence)
	require.NotEmpty(t, pred.Recommendations)
	assert.Equal(t, RecNoModel, pred.Recommendations[0])
	assert.Contains(t, pred.Recommendations, RecLowMoisture)
	assert.InDelta(t, 28.4, vec[models.FeatSoilMoistureAvg], 1e-9)
}

func TestPredictScalerWithoutModelIsUnavailable(t *testing.T) {
	b := constantBundle(t, 10, false)
	b.Tabular = nil

	pred, _, err := New(b, DefaultConfig(), nil).Predict(exampleRequest(), nil)
	require.NoError(t, err)
	assert.False(t, pred.Available)
}

func TestPredictMissingInput(t *testing.T) {
	req := exampleRequest()
	req.SensorData.Humidity = nil

	_, _, err := New(constantBundle(t, 10, false), DefaultConfig(), nil).Predict(req, nil)
	assert.ErrorIs(t, err, models.ErrMissingInput)
}

func TestPredictTabularOnly(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		needs    bool
	}{
		{"long duration irrigates", 12, true},
		{"threshold is exclusive", 5, false},
		{"short duration skips", 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(constantBundle(t, tt.duration, false), DefaultConfig(), zap.NewNop())

			pred, _, err := p.Predict(exampleRequest(), nil)
			require.NoError(t, err)

			assert.True(t, pred.Available)
			assert.Equal(t, int(tt.duration), pred.DurationMinutes)
			assert.Equal(t, tt.needs, pred.NeedsIrrigation)
			assert.Equal(t, 0.9, pred.Confidence)
			assert.Equal(t, []string{SourceTabular}, pred.Sources)
			assert.NotEmpty(t, pred.PredictionID)
			assert.Equal(t, "plot-1", pred.PlotID)
		})
	}
}

func TestPredictDeterministic(t *testing.T) {
	p := New(constantBundle(t, 9, false), DefaultConfig(), nil)

	first, _, err := p.Predict(exampleRequest(), nil)
	require.NoError(t, err)
	second, _, err := p.Predict(exampleRequest(), nil)
	require.NoError(t, err)

	assert.Equal(t, first.DurationMinutes, second.DurationMinutes)
	assert.Equal(t, first.NeedsIrrigation, second.NeedsIrrigation)
}

func TestPredictSequenceVoteNeedsHistory(t *testing.T) {
	p := New(constantBundle(t, 12, true), DefaultConfig(), zap.NewNop())
	require.Equal(t, 3, p.HistoryWindow())

	history := []models.FeatureVector{
		{30, 25, 60, 500, 0, 1, 2, 2},
		{29, 26, 61, 510, 0, 2, 2, 2},
	}

	short, _, err := p.Predict(exampleRequest(), history)
	require.NoError(t, err)
	assert.Equal(t, []string{SourceTabular}, short.Sources)

	history = append(history, models.FeatureVector{28, 27, 62, 520, 0, 3, 2, 2})
	full, _, err := p.Predict(exampleRequest(), history)
	require.NoError(t, err)
	assert.Equal(t, []string{SourceTabular, SourceSequence}, full.Sources)

	vec, err := p.Features(exampleRequest())
	require.NoError(t, err)
	scaled, err := p.scaler.Transform(vec.Slice())
	require.NoError(t, err)
	tabularVote, err := p.tabular.Predict(scaled)
	require.NoError(t, err)

	window := make([][]float64, len(history))
	for i, h := range history {
		window[i], err = p.scaler.Transform(h.Slice())
		require.NoError(t, err)
	}
	sequenceVote, err := p.sequence.Predict(window)
	require.NoError(t, err)

	want := max(0, int(math.Round((tabularVote+sequenceVote)/2)))
	assert.Equal(t, want, full.DurationMinutes)
	assert.Equal(t, float64(want) > DefaultConfig().ThresholdMinutes, full.NeedsIrrigation)
}

func TestCombineVotes(t *testing.T) {
	tests := []struct {
		name     string
		votes    []float64
		duration int
		needs    bool
	}{
		{"mean of two", []float64{4, 7}, 6, true},
		{"half rounds up", []float64{2.4, 2.6}, 3, false},
		{"negative votes clamp to zero", []float64{-4, -2}, 0, false},
		{"mixed signs", []float64{-3, 1}, 0, false},
		{"single vote", []float64{8.4}, 8, true},
		{"at threshold", []float64{4.6, 5.4}, 5, false},
		{"just above threshold", []float64{5.6}, 6, true},
		{"just below threshold", []float64{4.4}, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			duration, needs := combine(tt.votes, DefaultConfig().ThresholdMinutes)
			assert.Equal(t, tt.duration, duration)
			assert.Equal(t, tt.needs, needs)
		})
	}
}

func TestRecommendations(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		moisture float64
		temp     float64
		raining  bool
		rainfall float64
		pred     models.Prediction
		expected []string
	}{
		{
			name: "critical moisture with irrigation", moisture: 15, temp: 25,
			pred:     models.Prediction{Available: true, NeedsIrrigation: true, DurationMinutes: 20},
			expected: []string{RecCriticalMoisture, "Irrigate for 20 minutes"},
		},
		{
			name: "hot and raining", moisture: 35, temp: 33, raining: true,
			pred:     models.Prediction{Available: true, NeedsIrrigation: true, DurationMinutes: 8},
			expected: []string{RecLowMoisture, RecHighTemperature, RecRainDetected, "Irrigate for 8 minutes"},
		},
		{
			name: "forecast rain", moisture: 55, temp: 20, rainfall: 12,
			pred: models.Prediction{Available: true, DurationMinutes: 2},
			expected: []string{
				RecAdequateMoisture,
				"Rain expected (12.0 mm) - consider postponing irrigation",
				"Predicted duration below threshold - skip this cycle",
			},
		},
		{
			name: "no model", moisture: 45, temp: 20,
			expected: []string{RecNoModel, RecAdequateMoisture},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.PredictionRequest{SensorData: models.SensorData{IsRaining: models.Bool(tt.raining)}}
			var vec models.FeatureVector
			vec[models.FeatSoilMoistureAvg] = tt.moisture
			vec[models.FeatTemperature] = tt.temp
			vec[models.FeatRainfallForecast] = tt.rainfall

			pred := tt.pred
			assert.Equal(t, tt.expected, recommendations(req, vec, &pred, cfg))
		})
	}
}
