package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// Publisher handles MQTT publishing from channels
type Publisher struct {
	client mqtt.Client
	logger *zap.Logger

	// Input channel (read by publisher, written by the irrigation service)
	RecommendationChan chan *models.Prediction

	recommendationTopic string // e.g., "irrigation/{plot_id}/recommendation"
	retained            bool
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	RecommendationTopic string
	// Retained keeps the latest recommendation on the broker for
	// controllers that connect later.
	Retained bool
}

// NewPublisher creates a new MQTT publisher with channels
func NewPublisher(
	client mqtt.Client,
	config PublisherConfig,
	recommendationChan chan *models.Prediction,
	logger *zap.Logger,
) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client:              client,
		logger:              logger.Named("mqtt_publisher"),
		RecommendationChan:  recommendationChan,
		recommendationTopic: config.RecommendationTopic,
		retained:            config.Retained,
	}
}

// Start begins publishing recommendations from the channel
// Runs until context is cancelled or channel is closed
func (p *Publisher) Start(ctx context.Context) {
	p.logger.Info("Starting")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Context cancelled, shutting down")
			return

		case pred, ok := <-p.RecommendationChan:
			if !ok {
				p.logger.Info("Recommendation channel closed, shutting down")
				return
			}

			if err := p.publishRecommendation(pred); err != nil {
				p.logger.Error("Error publishing recommendation", zap.String("plot_id", pred.PlotID), zap.Error(err))
			}
		}
	}
}

func (p *Publisher) publishRecommendation(pred *models.Prediction) error {
	payload, err := json.Marshal(pred)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation: %w", err)
	}

	topic := formatTopic(p.recommendationTopic, pred.PlotID)

	token := p.client.Publish(topic, 1, p.retained, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish recommendation: %w", token.Error())
	}

	p.logger.Debug("Published recommendation",
		zap.String("plot_id", pred.PlotID),
		zap.String("topic", topic),
		zap.Bool("needs_irrigation", pred.NeedsIrrigation),
		zap.Int("duration_minutes", pred.DurationMinutes),
	)
	return nil
}

// formatTopic replaces the {plot_id} placeholder with the actual plot ID
func formatTopic(topicPattern, plotID string) string {
	return strings.ReplaceAll(topicPattern, "{plot_id}", plotID)
}
