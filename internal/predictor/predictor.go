// Package predictor turns live sensor input into an irrigation
// recommendation using the loaded scaler and models.
package predictor

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/artifacts"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/features"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/ml"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// Model sources reported in Prediction.Sources
const (
	SourceTabular  = "random_forest"
	SourceSequence = "lstm"
)

// Config holds the inference settings
type Config struct {
	Defaults         features.Defaults
	ThresholdMinutes float64 // irrigate when the duration exceeds this
	Confidence       float64
	HeavyRainfallMM  float64
	CriticalMoisture float64
	LowMoisture      float64
	HighTemperature  float64
}

// DefaultConfig returns the default inference settings
func DefaultConfig() Config {
	return Config{
		Defaults:         features.InferenceDefaults(),
		ThresholdMinutes: 5,
		Confidence:       0.9,
		HeavyRainfallMM:  5,
		CriticalMoisture: 20,
		LowMoisture:      40,
		HighTemperature:  32,
	}
}

// Predictor combines the scaler and the available models. It is safe for
// concurrent use once constructed; nothing mutates it after New.
type Predictor struct {
	cfg      Config
	scaler   *ml.Scaler
	tabular  *ml.TabularRegressor
	sequence *ml.SequenceModel
	version  string
	logger   *zap.Logger
}

// New creates a predictor from a loaded bundle. A nil or partial bundle is
// accepted; the predictor then reports predictions as unavailable.
func New(b *artifacts.Bundle, cfg Config, logger *zap.Logger) *Predictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Predictor{
		cfg:    cfg,
		logger: logger.Named("predictor"),
	}
	if b != nil {
		p.scaler = b.Scaler
		p.tabular = b.Tabular
		p.sequence = b.Sequence
		p.version = b.Version()
	}
	return p
}

// Load reads the artifacts from store and builds a predictor. Load failures
// are returned for logging alongside a usable, possibly degraded, predictor.
func Load(store *artifacts.Store, cfg Config, logger *zap.Logger) (*Predictor, error) {
	b, err := store.Load()
	p := New(b, cfg, logger)
	if err != nil {
		p.logger.Warn("Model artifacts not fully loaded", zap.Error(err), zap.Bool("available", p.Available()))
	}
	return p, err
}

// Available reports whether at least one model can vote
func (p *Predictor) Available() bool {
	return p.scaler.Fitted() && (p.tabular.Trained() || p.sequence.Trained())
}

// Version returns the artifact version in use
func (p *Predictor) Version() string {
	return p.version
}

// Features builds the feature vector of req with the inference defaults
func (p *Predictor) Features(req *models.PredictionRequest) (models.FeatureVector, error) {
	return features.BuildRequest(req, p.cfg.Defaults)
}

// HistoryWindow returns how many past vectors the sequence model needs,
// 0 when no sequence model is loaded.
func (p *Predictor) HistoryWindow() int {
	if !p.sequence.Trained() {
		return 0
	}
	return p.sequence.Window()
}

// Predict builds features for req and combines the available model votes.
// history holds the plot's previous feature vectors, oldest first and not
// including this reading; the sequence model votes only when it is long
// enough. Missing required input is an error; a missing model is not.
func (p *Predictor) Predict(req *models.PredictionRequest, history []models.FeatureVector) (*models.Prediction, models.FeatureVector, error) {
	vec, err := features.BuildRequest(req, p.cfg.Defaults)
	if err != nil {
		return nil, vec, err
	}

	pred := &models.Prediction{
		PredictionID: uuid.NewString(),
		PlotID:       req.PlotID,
		Timestamp:    req.Timestamp,
		ModelVersion: p.version,
	}
	if pred.Timestamp.IsZero() {
		pred.Timestamp = time.Now().UTC()
	}

	if !p.Available() {
		pred.Recommendations = recommendations(req, vec, pred, p.cfg)
		return pred, vec, nil
	}

	votes, sources, err := p.votes(vec, history)
	if err != nil {
		return nil, vec, err
	}
	if len(votes) == 0 {
		pred.Recommendations = recommendations(req, vec, pred, p.cfg)
		return pred, vec, nil
	}

	duration, needs := combine(votes, p.cfg.ThresholdMinutes)

	pred.Available = true
	pred.Sources = sources
	pred.DurationMinutes = duration
	pred.NeedsIrrigation = needs
	pred.Confidence = p.cfg.Confidence
	pred.Recommendations = recommendations(req, vec, pred, p.cfg)

	p.logger.Debug("Prediction",
		zap.String("plot_id", req.PlotID),
		zap.Int("duration_minutes", duration),
		zap.Strings("sources", sources),
	)
	return pred, vec, nil
}

// combine rounds the mean vote to whole minutes, clamped at zero, and
// flags irrigation when it exceeds threshold.
func combine(votes []float64, threshold float64) (int, bool) {
	sum := 0.0
	for _, v := range votes {
		sum += v
	}
	duration := int(math.Round(sum / float64(len(votes))))
	if duration < 0 {
		duration = 0
	}
	return duration, float64(duration) > threshold
}

func (p *Predictor) votes(vec models.FeatureVector, history []models.FeatureVector) ([]float64, []string, error) {
	scaled, err := p.scaler.Transform(vec.Slice())
	if err != nil {
		return nil, nil, fmt.Errorf("scale features: %w", err)
	}

	var votes []float64
	var sources []string

	if p.tabular.Trained() {
		v, err := p.tabular.Predict(scaled)
		if err != nil {
			return nil, nil, fmt.Errorf("tabular prediction: %w", err)
		}
		votes = append(votes, v)
		sources = append(sources, SourceTabular)
	}

	if n := p.HistoryWindow(); n > 0 && len(history) >= n {
		window := make([][]float64, n)
		for i, h := range history[len(history)-n:] {
			row, err := p.scaler.Transform(h.Slice())
			if err != nil {
				return nil, nil, fmt.Errorf("scale history: %w", err)
			}
			window[i] = row
		}
		v, err := p.sequence.Predict(window)
		if err != nil {
			p.logger.Warn("Sequence prediction failed", zap.Error(err))
		} else {
			votes = append(votes, v)
			sources = append(sources, SourceSequence)
		}
	}

	return votes, sources, nil
}
