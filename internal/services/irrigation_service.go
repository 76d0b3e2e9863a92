package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/aggregator"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/predictor"
)

// PredictionSink stores emitted predictions
type PredictionSink interface {
	SavePrediction(ctx context.Context, p *models.PredictionLog) error
}

// HistorySource provides the stored readings of a plot, oldest first
type HistorySource interface {
	GetRecentRecords(ctx context.Context, collection, plotID string, limit int) ([]models.SensorRecord, error)
}

// IrrigationService turns live requests into recommendations. Requests are
// handled one at a time so each plot's history stays in arrival order.
type IrrigationService struct {
	predictor atomic.Pointer[predictor.Predictor]
	history   *aggregator.HistoryBuffer
	source    HistorySource
	sink      PredictionSink
	config    IrrigationServiceConfig
	logger    *zap.Logger

	// Input channel (written by the MQTT subscriber)
	RequestChan chan *models.PredictionRequest

	// Output channel (read by the MQTT publisher)
	RecommendationChan chan *models.Prediction

	// RecordChan receives every handled request for persistence; nil
	// disables forwarding.
	RecordChan chan<- *models.PredictionRequest
}

// IrrigationServiceConfig holds configuration for irrigation service
type IrrigationServiceConfig struct {
	Collection     string // collection history is seeded from
	ChannelSize    int
	SendTimeout    time.Duration
	StorageTimeout time.Duration
}

// DefaultIrrigationServiceConfig returns default configuration
func DefaultIrrigationServiceConfig() IrrigationServiceConfig {
	return IrrigationServiceConfig{
		Collection:     "sensorData",
		ChannelSize:    50,
		SendTimeout:    time.Second,
		StorageTimeout: 5 * time.Second,
	}
}

// NewIrrigationService creates a new irrigation service. source and sink may
// be nil.
func NewIrrigationService(
	p *predictor.Predictor,
	history *aggregator.HistoryBuffer,
	source HistorySource,
	sink PredictionSink,
	config IrrigationServiceConfig,
	logger *zap.Logger,
) *IrrigationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &IrrigationService{
		history:            history,
		source:             source,
		sink:               sink,
		config:             config,
		logger:             logger.Named("irrigation_service"),
		RequestChan:        make(chan *models.PredictionRequest, config.ChannelSize),
		RecommendationChan: make(chan *models.Prediction, config.ChannelSize),
	}
	s.predictor.Store(p)
	return s
}

// SwapPredictor replaces the live predictor. Requests already being handled
// finish with the previous one.
func (s *IrrigationService) SwapPredictor(p *predictor.Predictor) {
	old := s.predictor.Swap(p)
	s.logger.Info("Predictor swapped",
		zap.String("previous_version", versionOf(old)),
		zap.String("version", p.Version()),
		zap.Bool("available", p.Available()),
	)
}

// Predictor returns the live predictor
func (s *IrrigationService) Predictor() *predictor.Predictor {
	return s.predictor.Load()
}

// Start handles requests from the channel
// Runs until context is cancelled or the channel is closed
func (s *IrrigationService) Start(ctx context.Context) {
	s.logger.Info("Starting", zap.String("model_version", s.Predictor().Version()))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down", zap.Strings("plots", s.history.GetAllPlots()))
			return
		case req, ok := <-s.RequestChan:
			if !ok {
				return
			}
			s.HandleRequest(ctx, req)
		}
	}
}

// HandleRequest predicts for one request, publishes and logs the result,
// and records the reading in the plot history.
func (s *IrrigationService) HandleRequest(ctx context.Context, req *models.PredictionRequest) *models.Prediction {
	defer s.forward(req)

	p := s.Predictor()
	s.seedHistory(ctx, p, req.PlotID)

	var window []models.FeatureVector
	if n := p.HistoryWindow(); n > 0 {
		window = s.history.Window(req.PlotID, n)
	}

	pred, vec, err := p.Predict(req, window)
	if err != nil {
		s.logger.Warn("Cannot predict for request", zap.String("plot_id", req.PlotID), zap.Error(err))
		return nil
	}

	s.logger.Info("Irrigation recommendation",
		zap.String("plot_id", pred.PlotID),
		zap.Bool("available", pred.Available),
		zap.Bool("needs_irrigation", pred.NeedsIrrigation),
		zap.Int("duration_minutes", pred.DurationMinutes),
		zap.Strings("sources", pred.Sources),
		zap.Int("history", s.history.Len(req.PlotID)),
	)

	s.publish(pred)
	s.logPrediction(ctx, pred, vec)
	s.history.Append(req.PlotID, vec)
	return pred
}

// seedHistory loads stored readings the first time a plot is seen
func (s *IrrigationService) seedHistory(ctx context.Context, p *predictor.Predictor, plotID string) {
	if s.history.Seeded(plotID) {
		return
	}
	if s.source == nil {
		s.history.Seed(plotID, nil)
		return
	}

	readCtx, cancel := context.WithTimeout(ctx, s.config.StorageTimeout)
	defer cancel()

	records, err := s.source.GetRecentRecords(readCtx, s.config.Collection, plotID, s.history.Capacity())
	if err != nil {
		s.logger.Warn("Could not load plot history", zap.String("plot_id", plotID), zap.Error(err))
		s.history.Seed(plotID, nil)
		return
	}

	vectors := make([]models.FeatureVector, 0, len(records))
	for i := range records {
		v, err := p.Features(records[i].Request())
		if err != nil {
			continue
		}
		vectors = append(vectors, v)
	}
	if s.history.Seed(plotID, vectors) {
		s.logger.Info("Loaded plot history", zap.String("plot_id", plotID), zap.Int("readings", len(vectors)))
	}
}

func (s *IrrigationService) publish(pred *models.Prediction) {
	select {
	case s.RecommendationChan <- pred:
	case <-time.After(s.config.SendTimeout):
		s.logger.Warn("Recommendation channel full, dropping message", zap.String("plot_id", pred.PlotID))
	}
}

func (s *IrrigationService) logPrediction(ctx context.Context, pred *models.Prediction, vec models.FeatureVector) {
	if s.sink == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.config.StorageTimeout)
	defer cancel()

	if err := s.sink.SavePrediction(writeCtx, &models.PredictionLog{Prediction: *pred, Features: vec}); err != nil {
		s.logger.Error("Error saving prediction", zap.String("plot_id", pred.PlotID), zap.Error(err))
	}
}

func (s *IrrigationService) forward(req *models.PredictionRequest) {
	if s.RecordChan == nil {
		return
	}
	select {
	case s.RecordChan <- req:
	case <-time.After(s.config.SendTimeout):
		s.logger.Warn("Record channel full, dropping reading", zap.String("plot_id", req.PlotID))
	}
}

func versionOf(p *predictor.Predictor) string {
	if p == nil {
		return ""
	}
	return p.Version()
}
