package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/artifacts"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/predictor"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/trainer"
)

// TrainingRunner runs one training pass and persists its artifacts
type TrainingRunner interface {
	Run(ctx context.Context) (*trainer.Result, error)
}

// RunHistory reports the most recent recorded training run
type RunHistory interface {
	GetLastTrainingRun(ctx context.Context) (*models.TrainingRun, error)
}

// RetrainService retrains the models and swaps the fresh predictor into the
// irrigation service. A failed run or reload keeps the current predictor.
type RetrainService struct {
	runner  TrainingRunner
	store   *artifacts.Store
	config  predictor.Config
	target  *IrrigationService
	history RunHistory
	logger  *zap.Logger
	running sync.Mutex
}

// NewRetrainService creates a retrain service. history may be nil, which
// disables the missed-run check on Schedule.
func NewRetrainService(runner TrainingRunner, store *artifacts.Store, config predictor.Config, target *IrrigationService, history RunHistory, logger *zap.Logger) *RetrainService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrainService{
		runner:  runner,
		store:   store,
		config:  config,
		target:  target,
		history: history,
		logger:  logger.Named("retrain_service"),
	}
}

// Run trains and reloads. Overlapping calls are skipped.
func (r *RetrainService) Run(ctx context.Context) error {
	if !r.running.TryLock() {
		r.logger.Warn("Retrain already in progress, skipping")
		return nil
	}
	defer r.running.Unlock()

	result, err := r.runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("retrain: %w", err)
	}

	p, err := predictor.Load(r.store, r.config, r.logger)
	if err != nil {
		return fmt.Errorf("reload artifacts %s: %w", result.Version, err)
	}
	if !p.Available() {
		return fmt.Errorf("reload artifacts %s: %w", result.Version, models.ErrNoModel)
	}

	r.target.SwapPredictor(p)
	r.logger.Info("Retrain complete",
		zap.String("version", result.Version),
		zap.Int("rows", result.RowsClean),
		zap.Bool("sequence", result.Sequence != nil),
	)
	return nil
}

// Schedule starts a cron scheduler running Run on spec (standard five-field
// syntax). When no model is loaded, or the last recorded run is older than
// one scheduled interval, a catch-up run starts right away. The caller stops
// the scheduler on shutdown.
func (r *RetrainService) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid retrain schedule %q: %w", spec, err)
	}

	c := cron.New()
	c.Schedule(schedule, cron.FuncJob(func() {
		r.runLogged(ctx, "scheduled")
	}))
	c.Start()

	now := time.Now()
	r.logger.Info("Retrain scheduled", zap.String("schedule", spec), zap.Time("next_run", schedule.Next(now)))

	if r.catchUpDue(ctx, schedule, now) {
		go r.runLogged(ctx, "catch-up")
	}
	return c, nil
}

func (r *RetrainService) runLogged(ctx context.Context, trigger string) {
	if err := r.Run(ctx); err != nil {
		r.logger.Error("Retrain failed, keeping current models", zap.String("trigger", trigger), zap.Error(err))
	}
}

// catchUpDue reports whether a retrain should run before the next tick
func (r *RetrainService) catchUpDue(ctx context.Context, schedule cron.Schedule, now time.Time) bool {
	if !r.target.Predictor().Available() {
		r.logger.Info("No model loaded, retraining now")
		return true
	}
	if r.history == nil {
		return false
	}

	last, err := r.history.GetLastTrainingRun(ctx)
	if err != nil {
		r.logger.Warn("Failed to read last training run", zap.Error(err))
		return false
	}
	if last == nil {
		r.logger.Info("No training run recorded, retraining now")
		return true
	}
	if missed := schedule.Next(last.StartedAt); missed.Before(now) {
		r.logger.Info("Scheduled retrain was missed, retraining now",
			zap.String("last_run", last.RunID),
			zap.Time("last_started_at", last.StartedAt),
			zap.Time("missed_at", missed),
		)
		return true
	}
	return false
}
