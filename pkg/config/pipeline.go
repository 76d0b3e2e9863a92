package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/features"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/ml"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/predictor"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/trainer"
)

// Prediction holds the decision settings of the predictor
type Prediction struct {
	ThresholdMinutes float64 `yaml:"threshold_minutes"`
	Confidence       float64 `yaml:"confidence"`
	HeavyRainfallMM  float64 `yaml:"heavy_rainfall_mm"`
	CriticalMoisture float64 `yaml:"critical_moisture"`
	LowMoisture      float64 `yaml:"low_moisture"`
	HighTemperature  float64 `yaml:"high_temperature"`
}

// Pipeline holds the model hyperparameters and feature defaults. It is read
// from an optional YAML file; keys absent from the file keep their defaults.
type Pipeline struct {
	InferenceDefaults features.Defaults `yaml:"inference_defaults"`
	CleaningDefaults  features.Defaults `yaml:"cleaning_defaults"`
	Forest            ml.ForestConfig   `yaml:"forest"`
	Sequence          ml.SequenceConfig `yaml:"sequence"`
	TrainSequence     bool              `yaml:"train_sequence"`
	Prediction        Prediction        `yaml:"prediction"`
}

// DefaultPipeline returns the documented defaults
func DefaultPipeline() Pipeline {
	pc := predictor.DefaultConfig()
	return Pipeline{
		InferenceDefaults: features.InferenceDefaults(),
		CleaningDefaults:  features.CleaningDefaults(),
		Forest:            ml.DefaultForestConfig(),
		Sequence:          ml.DefaultSequenceConfig(),
		TrainSequence:     true,
		Prediction: Prediction{
			ThresholdMinutes: pc.ThresholdMinutes,
			Confidence:       pc.Confidence,
			HeavyRainfallMM:  pc.HeavyRainfallMM,
			CriticalMoisture: pc.CriticalMoisture,
			LowMoisture:      pc.LowMoisture,
			HighTemperature:  pc.HighTemperature,
		},
	}
}

// LoadPipeline reads path over the defaults, then applies the
// TRAIN_SEQUENCE and PREDICTION_THRESHOLD_MINUTES environment overrides.
// An empty path means defaults only.
func LoadPipeline(path string) (Pipeline, error) {
	p := DefaultPipeline()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return p, fmt.Errorf("failed to read pipeline config: %w", err)
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("failed to parse pipeline config %s: %w", path, err)
		}
	}

	p.TrainSequence = getEnvBool("TRAIN_SEQUENCE", p.TrainSequence)
	p.Prediction.ThresholdMinutes = getEnvFloat("PREDICTION_THRESHOLD_MINUTES", p.Prediction.ThresholdMinutes)

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate rejects settings the models cannot train with
func (p Pipeline) Validate() error {
	switch {
	case p.Forest.NumTrees <= 0:
		return fmt.Errorf("forest.num_trees must be positive")
	case p.Forest.MinRows < 2:
		return fmt.Errorf("forest.min_rows must be at least 2")
	case p.Forest.TestSize < 0 || p.Forest.TestSize >= 1:
		return fmt.Errorf("forest.test_size must be in [0, 1)")
	case p.Sequence.Window <= 0:
		return fmt.Errorf("sequence.window must be positive")
	case p.Sequence.Hidden <= 0 || p.Sequence.Dense <= 0:
		return fmt.Errorf("sequence layer sizes must be positive")
	case p.Sequence.Dropout < 0 || p.Sequence.Dropout >= 1:
		return fmt.Errorf("sequence.dropout must be in [0, 1)")
	case p.Sequence.LearningRate <= 0:
		return fmt.Errorf("sequence.learning_rate must be positive")
	case p.Prediction.Confidence < 0 || p.Prediction.Confidence > 1:
		return fmt.Errorf("prediction.confidence must be in [0, 1]")
	}
	return nil
}

// PredictorConfig returns the predictor settings
func (p Pipeline) PredictorConfig() predictor.Config {
	return predictor.Config{
		Defaults:         p.InferenceDefaults,
		ThresholdMinutes: p.Prediction.ThresholdMinutes,
		Confidence:       p.Prediction.Confidence,
		HeavyRainfallMM:  p.Prediction.HeavyRainfallMM,
		CriticalMoisture: p.Prediction.CriticalMoisture,
		LowMoisture:      p.Prediction.LowMoisture,
		HighTemperature:  p.Prediction.HighTemperature,
	}
}

// TrainerConfig returns the trainer settings for the given record collection
func (p Pipeline) TrainerConfig(recordPath string) trainer.Config {
	return trainer.Config{
		RecordPath:    recordPath,
		Cleaning:      p.CleaningDefaults,
		Forest:        p.Forest,
		Sequence:      p.Sequence,
		TrainSequence: p.TrainSequence,
	}
}
