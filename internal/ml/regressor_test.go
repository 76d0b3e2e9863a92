package ml

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// syntheticRows returns n rows of 8 features where the label depends only on
// the first feature.
func syntheticRows(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		row := make([]float64, models.NumFeatures)
		for j := range row {
			row[j] = rng.Float64()
		}
		row[0] = float64(i%20) / 20
		X[i] = row
		y[i] = 30 * row[0]
	}
	return X, y
}

func smallForest() ForestConfig {
	cfg := DefaultForestConfig()
	cfg.NumTrees = 20
	return cfg
}

func TestTabularRegressorInsufficientData(t *testing.T) {
	for _, n := range []int{0, 3, 4} {
		X, y := syntheticRows(n, 1)
		_, err := NewTabularRegressor(smallForest(), zap.NewNop()).Train(context.Background(), X, y)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInsufficientData)

		var insufficient *models.InsufficientDataError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, n, insufficient.Have)
		assert.Equal(t, 5, insufficient.Need)
	}
}

func TestTabularRegressorNotTrained(t *testing.T) {
	r := NewTabularRegressor(smallForest(), nil)
	assert.False(t, r.Trained())

	_, err := r.Predict(make([]float64, models.NumFeatures))
	assert.ErrorIs(t, err, models.ErrNotTrained)
	assert.Nil(t, r.FeatureImportance())
}

func TestTabularRegressorLearnsSignal(t *testing.T) {
	X, y := syntheticRows(100, 7)

	r := NewTabularRegressor(smallForest(), zap.NewNop())
	report, err := r.Train(context.Background(), X, y)
	require.NoError(t, err)

	assert.Equal(t, 80, report.TrainRows)
	assert.Equal(t, 20, report.TestRows)
	assert.Greater(t, report.Metrics.R2, 0.8)
	require.Len(t, report.Importances, models.NumFeatures)
	assert.Equal(t, "soil_moisture_avg", report.Importances[0].Feature)

	total := 0.0
	for _, fi := range report.Importances {
		total += fi.Importance
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	info := r.GetModelInfo()
	assert.Equal(t, "random_forest", info.Algorithm)
	assert.Equal(t, 20, info.NumTrees)
	assert.Equal(t, models.NumFeatures, info.NumFeatures)
	assert.Positive(t, info.Depth)
	assert.LessOrEqual(t, info.Depth, info.MaxDepth)
}

func TestTabularRegressorDeterministic(t *testing.T) {
	X, y := syntheticRows(60, 3)
	sample := []float64{0.5, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}

	first := NewTabularRegressor(smallForest(), nil)
	_, err := first.Train(context.Background(), X, y)
	require.NoError(t, err)

	second := NewTabularRegressor(smallForest(), nil)
	_, err = second.Train(context.Background(), X, y)
	require.NoError(t, err)

	a, err := first.Predict(sample)
	require.NoError(t, err)
	b, err := second.Predict(sample)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	again, err := first.Predict(sample)
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestTabularRegressorClampsNegative(t *testing.T) {
	X, _ := syntheticRows(10, 5)
	y := make([]float64, len(X))
	for i := range y {
		y[i] = -4
	}

	r := NewTabularRegressor(smallForest(), nil)
	_, err := r.Train(context.Background(), X, y)
	require.NoError(t, err)

	p, err := r.Predict(X[0])
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func TestTrainTestSplit(t *testing.T) {
	train, test := TrainTestSplit(10, 0.2, 42)
	assert.Len(t, train, 8)
	assert.Len(t, test, 2)

	again, againTest := TrainTestSplit(10, 0.2, 42)
	assert.Equal(t, train, again)
	assert.Equal(t, test, againTest)

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), test...) {
		seen[i] = true
	}
	assert.Len(t, seen, 10)

	train, test = TrainTestSplit(7, 0.2, 1)
	assert.Len(t, test, 2)
	assert.Len(t, train, 5)
}
