// Package trainer runs one training pass: fetch historical records, clean
// them, fit the scaler and both models, and persist the artifacts.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/artifacts"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/features"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/ml"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// RecordSource provides the historical records of a collection, oldest first
type RecordSource interface {
	GetAllRecords(ctx context.Context, path string) ([]models.RawRecord, error)
}

// RunRecorder stores a summary of every training run
type RunRecorder interface {
	SaveTrainingRun(ctx context.Context, run *models.TrainingRun) error
}

// Config holds trainer settings
type Config struct {
	RecordPath    string
	Cleaning      features.Defaults
	Forest        ml.ForestConfig
	Sequence      ml.SequenceConfig
	TrainSequence bool
}

// DefaultConfig returns the default trainer settings
func DefaultConfig() Config {
	return Config{
		RecordPath:    "sensorData",
		Cleaning:      features.CleaningDefaults(),
		Forest:        ml.DefaultForestConfig(),
		Sequence:      ml.DefaultSequenceConfig(),
		TrainSequence: true,
	}
}

// Result describes a successful training run
type Result struct {
	RunID     string             `json:"run_id"`
	Version   string             `json:"version"`
	RowsRaw   int                `json:"rows_raw"`
	RowsClean int                `json:"rows_clean"`
	Tabular   *ml.TabularReport  `json:"tabular"`
	Sequence  *ml.SequenceReport `json:"sequence,omitempty"`

	// SequenceSkipped explains why no sequence model was produced
	SequenceSkipped string `json:"sequence_skipped,omitempty"`
}

// Trainer orchestrates cleaning, fitting and persistence
type Trainer struct {
	source   RecordSource
	store    *artifacts.Store
	recorder RunRecorder
	cleaner  *features.Cleaner
	cfg      Config
	logger   *zap.Logger
}

// New creates a trainer. recorder may be nil.
func New(source RecordSource, store *artifacts.Store, recorder RunRecorder, cfg Config, logger *zap.Logger) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{
		source:   source,
		store:    store,
		recorder: recorder,
		cleaner:  features.NewCleaner(cfg.Cleaning, logger),
		cfg:      cfg,
		logger:   logger.Named("trainer"),
	}
}

// Run trains on every record of the configured collection. On failure the
// previously saved artifacts are left untouched.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	run := &models.TrainingRun{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	t.logger.Info("Training run started", zap.String("run_id", run.RunID), zap.String("path", t.cfg.RecordPath))

	result, err := t.run(ctx, run)
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		t.logger.Error("Training run failed", zap.String("run_id", run.RunID), zap.Error(err))
	} else {
		run.Status = models.RunStatusSuccess
		t.logger.Info("Training run finished",
			zap.String("run_id", run.RunID),
			zap.String("version", result.Version),
			zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
		)
	}

	if t.recorder != nil {
		if recErr := t.recorder.SaveTrainingRun(ctx, run); recErr != nil {
			t.logger.Warn("Failed to record training run", zap.String("run_id", run.RunID), zap.Error(recErr))
		}
	}
	return result, err
}

func (t *Trainer) run(ctx context.Context, run *models.TrainingRun) (*Result, error) {
	records, err := t.source.GetAllRecords(ctx, t.cfg.RecordPath)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	run.RowsRaw = len(records)

	ds, err := t.cleaner.Clean(records)
	if err != nil {
		return nil, err
	}
	run.RowsClean = ds.Len()

	result, bundle, err := t.Fit(ctx, ds)
	if err != nil {
		return nil, err
	}
	result.RunID = run.RunID
	result.RowsRaw = run.RowsRaw
	run.TabularMSE = result.Tabular.Metrics.MSE
	run.TabularR2 = result.Tabular.Metrics.R2
	if result.Sequence != nil {
		run.SequenceUsed = true
		run.SequenceLoss = result.Sequence.BestValMSE
	}

	version, err := t.store.Save(bundle)
	if err != nil {
		return nil, fmt.Errorf("save artifacts: %w", err)
	}
	result.Version = version
	run.ModelVersion = version
	return result, nil
}

// Fit trains the scaler and models on a cleaned dataset without persisting
// anything.
func (t *Trainer) Fit(ctx context.Context, ds *models.Dataset) (*Result, *artifacts.Bundle, error) {
	minRows := t.cfg.Forest.MinRows
	if minRows < 2 {
		minRows = 2
	}
	if ds.Len() < minRows {
		return nil, nil, &models.InsufficientDataError{Model: "tabular", Have: ds.Len(), Need: minRows}
	}

	scaler, err := ml.FitDataset(ds)
	if err != nil {
		return nil, nil, err
	}
	X, err := scaler.TransformAll(ds.Features())
	if err != nil {
		return nil, nil, fmt.Errorf("scale dataset: %w", err)
	}
	y := ds.Labels()

	tabular := ml.NewTabularRegressor(t.cfg.Forest, t.logger)
	tabReport, err := tabular.Train(ctx, X, y)
	if err != nil {
		return nil, nil, err
	}
	t.logImportances(tabReport)

	result := &Result{
		RowsClean: ds.Len(),
		Tabular:   tabReport,
	}
	bundle := &artifacts.Bundle{
		Manifest: &artifacts.Manifest{Tabular: tabReport},
		Scaler:   scaler,
		Tabular:  tabular,
	}

	if !t.cfg.TrainSequence {
		result.SequenceSkipped = "disabled"
		return result, bundle, nil
	}

	seq := ml.NewSequenceModel(t.cfg.Sequence, models.NumFeatures, t.logger)
	seqReport, err := seq.Train(ctx, X, y)
	switch {
	case err == nil:
		result.Sequence = seqReport
		bundle.Sequence = seq
		bundle.Manifest.Sequence = seqReport
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return nil, nil, err
	default:
		result.SequenceSkipped = err.Error()
		t.logger.Warn("Skipping sequence model", zap.Error(err))
	}

	return result, bundle, nil
}

func (t *Trainer) logImportances(report *ml.TabularReport) {
	fields := make([]zap.Field, 0, len(report.Importances))
	for _, fi := range report.Importances {
		fields = append(fields, zap.Float64(fi.Feature, fi.Importance))
	}
	t.logger.Info("Feature importances", fields...)
}
