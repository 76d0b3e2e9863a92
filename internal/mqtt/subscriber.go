package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// Subscriber handles MQTT subscriptions and writes messages to channels
type Subscriber struct {
	client mqtt.Client
	logger *zap.Logger

	// Output channel (written by subscriber, read by the irrigation service)
	RequestChan chan *models.PredictionRequest

	requestTopic string
	sendTimeout  time.Duration
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	RequestTopic string // e.g., "irrigation/+/request"
}

// NewSubscriber creates a new MQTT subscriber with channels
func NewSubscriber(
	client mqtt.Client,
	config SubscriberConfig,
	requestChan chan *models.PredictionRequest,
	logger *zap.Logger,
) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		client:       client,
		logger:       logger.Named("mqtt_subscriber"),
		RequestChan:  requestChan,
		requestTopic: config.RequestTopic,
		sendTimeout:  time.Second,
	}
}

// SubscribeAll subscribes to all configured topics
func (s *Subscriber) SubscribeAll() error {
	if s.requestTopic == "" {
		return fmt.Errorf("no request topic configured")
	}

	token := s.client.Subscribe(s.requestTopic, 1, s.handleRequest)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to request topic: %w", token.Error())
	}
	s.logger.Info("Subscribed to request topic", zap.String("topic", s.requestTopic))
	return nil
}

// handleRequest decodes a prediction request and writes it to the channel
func (s *Subscriber) handleRequest(client mqtt.Client, msg mqtt.Message) {
	req, err := decodeRequest(msg.Topic(), msg.Payload())
	if err != nil {
		s.logger.Warn("Dropping malformed request", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	s.logger.Debug("Received prediction request", zap.String("plot_id", req.PlotID))

	select {
	case s.RequestChan <- req:
	case <-time.After(s.sendTimeout):
		s.logger.Warn("Request channel full, dropping message", zap.String("plot_id", req.PlotID))
	}
}

// decodeRequest parses a request payload. The plot id falls back to the
// topic and the timestamp is set server-side when absent.
func decodeRequest(topic string, payload []byte) (*models.PredictionRequest, error) {
	var req models.PredictionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prediction request: %w", err)
	}

	if req.PlotID == "" {
		req.PlotID = extractPlotID(topic)
	}
	if req.PlotID == "" {
		return nil, fmt.Errorf("could not determine plot id from topic %q", topic)
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}
	return &req, nil
}

// extractPlotID extracts the plot ID from an MQTT topic
// Example: "irrigation/plot-7/request" -> "plot-7"
func extractPlotID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[1]
	}
	return ""
}
