package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// RecordStore persists live readings
type RecordStore interface {
	SaveSensorRecord(ctx context.Context, rec *models.SensorRecord) error
}

// SensorService persists every live reading so labeled ones feed later
// training runs and all of them seed plot history after a restart.
type SensorService struct {
	store      RecordStore
	collection string
	timeout    time.Duration
	logger     *zap.Logger

	// Input channel (written by the irrigation service)
	RecordChan chan *models.PredictionRequest
}

// SensorServiceConfig holds configuration for sensor service
type SensorServiceConfig struct {
	Collection   string // record collection readings are stored under
	ChannelSize  int
	WriteTimeout time.Duration
}

// DefaultSensorServiceConfig returns default configuration
func DefaultSensorServiceConfig() SensorServiceConfig {
	return SensorServiceConfig{
		Collection:   "sensorData",
		ChannelSize:  100,
		WriteTimeout: 5 * time.Second,
	}
}

// NewSensorService creates a new sensor service
func NewSensorService(store RecordStore, config SensorServiceConfig, logger *zap.Logger) *SensorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SensorService{
		store:      store,
		collection: config.Collection,
		timeout:    config.WriteTimeout,
		logger:     logger.Named("sensor_service"),
		RecordChan: make(chan *models.PredictionRequest, config.ChannelSize),
	}
}

// Start persists readings from the channel
// Runs until context is cancelled or the channel is closed
func (s *SensorService) Start(ctx context.Context) {
	s.logger.Info("Starting", zap.String("collection", s.collection))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down")
			return
		case req, ok := <-s.RecordChan:
			if !ok {
				return
			}
			s.processReading(ctx, req)
		}
	}
}

func (s *SensorService) processReading(ctx context.Context, req *models.PredictionRequest) {
	rec := models.NewSensorRecord(uuid.NewString(), s.collection, req)

	writeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.SaveSensorRecord(writeCtx, rec); err != nil {
		s.logger.Error("Error saving sensor record", zap.String("plot_id", rec.PlotID), zap.Error(err))
		return
	}

	s.logger.Debug("Saved sensor record",
		zap.String("plot_id", rec.PlotID),
		zap.String("record_id", rec.RecordID),
		zap.Bool("labeled", rec.IrrigationDuration != nil),
	)
}
