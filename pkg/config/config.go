package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Environment string

	// MQTT Configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// MQTT topics
	MQTTTopicRequest        string
	MQTTTopicRecommendation string

	// ClickHouse Configuration
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// ML Model Configuration
	ModelDir       string
	RecordPath     string
	PipelineConfig string

	// Scheduled retraining, cron syntax; empty disables it
	RetrainSchedule string

	// Per-plot feature history kept for the sequence model
	HistorySize int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "production"),

		// MQTT Configuration
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "irrigation-backend"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		// MQTT topics
		MQTTTopicRequest:        getEnv("MQTT_TOPIC_REQUEST", "irrigation/+/request"),
		MQTTTopicRecommendation: getEnv("MQTT_TOPIC_RECOMMENDATION", "irrigation/{plot_id}/recommendation"),

		// ClickHouse Configuration
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "irrigation"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		// ML Model Configuration
		ModelDir:       getEnv("MODEL_DIR", "./models"),
		RecordPath:     getEnv("RECORD_PATH", "sensorData"),
		PipelineConfig: getEnv("PIPELINE_CONFIG", ""),

		RetrainSchedule: getEnv("RETRAIN_SCHEDULE", ""),
		HistorySize:     getEnvInt("HISTORY_SIZE", 48),
	}
}

// IsDevelopment reports whether development logging should be used
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// NewLogger builds the process logger for the configured environment
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}
