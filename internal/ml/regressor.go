package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// FeatureImportance pairs a feature name with its importance
type FeatureImportance struct {
	Feature    string  `json:"feature" yaml:"feature"`
	Importance float64 `json:"importance" yaml:"importance"`
}

// TabularReport summarizes a tabular training run
type TabularReport struct {
	TrainRows   int                 `json:"train_rows" yaml:"train_rows"`
	TestRows    int                 `json:"test_rows" yaml:"test_rows"`
	Metrics     RegressionMetrics   `json:"metrics" yaml:"metrics"`
	Importances []FeatureImportance `json:"importances" yaml:"importances"`
}

// TabularRegressor is the primary duration model: a random forest over
// scaled feature vectors.
type TabularRegressor struct {
	cfg    ForestConfig
	forest *RandomForest
	logger *zap.Logger
}

// NewTabularRegressor creates an untrained regressor
func NewTabularRegressor(cfg ForestConfig, logger *zap.Logger) *TabularRegressor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinRows < 2 {
		cfg.MinRows = 2
	}
	return &TabularRegressor{
		cfg:    cfg,
		logger: logger.Named("tabular"),
	}
}

// Train fits the forest on a seeded train split and evaluates it on the
// held-out rows. When there is no held-out row the training rows are scored.
func (r *TabularRegressor) Train(ctx context.Context, X [][]float64, y []float64) (*TabularReport, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("X and y must have same number of samples")
	}
	if len(X) < r.cfg.MinRows {
		return nil, &models.InsufficientDataError{Model: "tabular", Have: len(X), Need: r.cfg.MinRows}
	}

	trainIdx, testIdx := TrainTestSplit(len(X), r.cfg.TestSize, r.cfg.Seed)
	trainX, trainY := selectRows(X, y, trainIdx)
	testX, testY := selectRows(X, y, testIdx)
	if len(testIdx) == 0 {
		testX, testY = trainX, trainY
	}

	forest := NewRandomForest(r.cfg)
	if err := forest.Fit(ctx, trainX, trainY); err != nil {
		return nil, fmt.Errorf("fit random forest: %w", err)
	}

	preds := make([]float64, len(testX))
	for i, x := range testX {
		p, err := forest.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("evaluate random forest: %w", err)
		}
		preds[i] = math.Max(0, p)
	}
	metrics, err := CalculateRegressionMetrics(testY, preds)
	if err != nil {
		return nil, fmt.Errorf("evaluate random forest: %w", err)
	}

	r.forest = forest
	report := &TabularReport{
		TrainRows:   len(trainIdx),
		TestRows:    len(testIdx),
		Metrics:     *metrics,
		Importances: r.FeatureImportance(),
	}

	r.logger.Info("Random forest trained",
		zap.Int("train_rows", report.TrainRows),
		zap.Int("test_rows", report.TestRows),
		zap.Float64("mse", metrics.MSE),
		zap.Float64("r2", metrics.R2),
	)
	return report, nil
}

// Trained reports whether the regressor can predict
func (r *TabularRegressor) Trained() bool {
	return r != nil && r.forest != nil && len(r.forest.Trees) > 0
}

// Predict returns the duration estimate for one scaled vector, never negative
func (r *TabularRegressor) Predict(x []float64) (float64, error) {
	if !r.Trained() {
		return 0, models.ErrNotTrained
	}
	p, err := r.forest.Predict(x)
	if err != nil {
		return 0, err
	}
	return math.Max(0, p), nil
}

// FeatureImportance returns importances sorted from most to least important
func (r *TabularRegressor) FeatureImportance() []FeatureImportance {
	if !r.Trained() {
		return nil
	}
	out := make([]FeatureImportance, 0, len(r.forest.Importances))
	for i, v := range r.forest.Importances {
		name := fmt.Sprintf("feature_%d", i)
		if i < len(models.FeatureNames) {
			name = models.FeatureNames[i]
		}
		out = append(out, FeatureImportance{Feature: name, Importance: v})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Importance > out[b].Importance
	})
	return out
}

// ModelInfo summarizes a fitted forest for the artifact manifest
type ModelInfo struct {
	Algorithm   string `json:"algorithm" yaml:"algorithm"`
	NumTrees    int    `json:"num_trees" yaml:"num_trees"`
	NumFeatures int    `json:"num_features" yaml:"num_features"`
	MaxDepth    int    `json:"max_depth" yaml:"max_depth"`
	Depth       int    `json:"depth" yaml:"depth"` // deepest fitted tree
}

// GetModelInfo returns the summary written to the artifact manifest
func (r *TabularRegressor) GetModelInfo() ModelInfo {
	info := ModelInfo{Algorithm: "random_forest"}
	if !r.Trained() {
		return info
	}
	info.NumTrees = len(r.forest.Trees)
	info.NumFeatures = r.forest.NumFeatures
	info.MaxDepth = r.forest.Config.MaxDepth
	for _, tree := range r.forest.Trees {
		info.Depth = max(info.Depth, tree.Depth())
	}
	return info
}

// MarshalJSON encodes the fitted forest
func (r *TabularRegressor) MarshalJSON() ([]byte, error) {
	if !r.Trained() {
		return nil, models.ErrNotTrained
	}
	return json.Marshal(r.forest)
}

// UnmarshalJSON decodes and validates a fitted forest
func (r *TabularRegressor) UnmarshalJSON(data []byte) error {
	var forest RandomForest
	if err := json.Unmarshal(data, &forest); err != nil {
		return err
	}
	if err := forest.Validate(); err != nil {
		return err
	}
	r.forest = &forest
	r.cfg = forest.Config
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return nil
}
