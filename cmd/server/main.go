package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/aggregator"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/artifacts"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/database"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/mqtt"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/predictor"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/services"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/trainer"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/pkg/config"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger, err := cfg.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting irrigation prediction service")

	pipeline, err := config.LoadPipeline(cfg.PipelineConfig)
	if err != nil {
		logger.Fatal("Failed to load pipeline config", zap.Error(err))
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize ClickHouse database
	db, err := database.NewClickHouseDB(ctx,
		cfg.ClickHouseAddr,
		cfg.ClickHouseDB,
		cfg.ClickHouseUser,
		cfg.ClickHousePass,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize ClickHouse", zap.Error(err))
	}
	defer db.Close()

	// === Models ===
	// Missing artifacts are not fatal: the service answers with
	// "no model" recommendations until a retrain succeeds.
	store := artifacts.NewStore(cfg.ModelDir, logger)
	predictorConfig := pipeline.PredictorConfig()
	pred, _ := predictor.Load(store, predictorConfig, logger)
	logger.Info("Predictor loaded",
		zap.String("model_dir", cfg.ModelDir),
		zap.String("version", pred.Version()),
		zap.Bool("available", pred.Available()),
		zap.Int("history_window", pred.HistoryWindow()),
	)

	// === Initialize MQTT Client ===
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize MQTT client", zap.Error(err))
	}
	defer mqttClient.Close()

	// === Services ===
	sensorConfig := services.DefaultSensorServiceConfig()
	sensorConfig.Collection = cfg.RecordPath
	sensorService := services.NewSensorService(db, sensorConfig, logger)

	irrigationConfig := services.DefaultIrrigationServiceConfig()
	irrigationConfig.Collection = cfg.RecordPath
	history := aggregator.NewHistoryBuffer(cfg.HistorySize, logger)
	irrigationService := services.NewIrrigationService(pred, history, db, db, irrigationConfig, logger)

	// Readings flow on to the sensor service once handled
	irrigationService.RecordChan = sensorService.RecordChan

	// === MQTT wiring ===
	// The subscriber writes into the irrigation service's input channel and
	// the publisher drains its output channel.
	subscriber := mqtt.NewSubscriber(
		mqttClient.GetNativeClient(),
		mqtt.SubscriberConfig{RequestTopic: cfg.MQTTTopicRequest},
		irrigationService.RequestChan,
		logger,
	)
	publisher := mqtt.NewPublisher(
		mqttClient.GetNativeClient(),
		mqtt.PublisherConfig{RecommendationTopic: cfg.MQTTTopicRecommendation, Retained: true},
		irrigationService.RecommendationChan,
		logger,
	)

	go sensorService.Start(ctx)
	go irrigationService.Start(ctx)
	go publisher.Start(ctx)

	if err := subscriber.SubscribeAll(); err != nil {
		logger.Fatal("Failed to subscribe to MQTT topics", zap.Error(err))
	}

	// === Scheduled retraining ===
	if cfg.RetrainSchedule != "" {
		runner := trainer.New(db, store, db, pipeline.TrainerConfig(cfg.RecordPath), logger)
		retrain := services.NewRetrainService(runner, store, predictorConfig, irrigationService, db, logger)
		scheduler, err := retrain.Schedule(ctx, cfg.RetrainSchedule)
		if err != nil {
			logger.Fatal("Failed to schedule retraining", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	logger.Info("Irrigation prediction service is running",
		zap.String("request_topic", cfg.MQTTTopicRequest),
		zap.String("recommendation_topic", cfg.MQTTTopicRecommendation),
		zap.String("retrain_schedule", cfg.RetrainSchedule),
	)

	// === Wait for interrupt signal ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// === Graceful shutdown ===
	logger.Info("Shutdown signal received, stopping services")
	cancel()

	// Give services time to finish processing
	time.Sleep(2 * time.Second)

	logger.Info("Shutdown complete")
}
