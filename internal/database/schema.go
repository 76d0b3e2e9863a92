package database

// SQL schemas for all ClickHouse tables

const (
	// SensorRecordsTableSQL creates the sensor_records table. Readings with an
	// irrigation_duration are the labeled history used for training.
	SensorRecordsTableSQL = `
		CREATE TABLE IF NOT EXISTS sensor_records (
			record_id String,
			collection String,
			plot_id String,
			recorded_at DateTime64(3),
			soil_moisture Array(Float64),
			temperature Nullable(Float64),
			humidity Nullable(Float64),
			light_intensity Nullable(Float64),
			is_raining Nullable(Bool),
			rainfall_forecast Nullable(Float64),
			days_since_irrigation Nullable(Float64),
			crop_stage Nullable(Float64),
			soil_type Nullable(Float64),
			irrigation_duration Nullable(Float64)
		) ENGINE = MergeTree()
		ORDER BY (collection, plot_id, recorded_at, record_id)
		PARTITION BY toYYYYMM(recorded_at)
	`

	// IrrigationPredictionsTableSQL creates the irrigation_predictions table
	IrrigationPredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS irrigation_predictions (
			prediction_id String,
			plot_id String,
			timestamp DateTime64(3),
			needs_irrigation Bool,
			duration_minutes Int32,
			confidence Float64,
			available Bool,
			sources Array(String),
			model_version String,
			recommendations Array(String),
			features Array(Float64)
		) ENGINE = MergeTree()
		ORDER BY (plot_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// TrainingRunsTableSQL creates the training_runs table
	TrainingRunsTableSQL = `
		CREATE TABLE IF NOT EXISTS training_runs (
			run_id String,
			started_at DateTime64(3),
			finished_at DateTime64(3),
			status LowCardinality(String),
			error String,
			rows_raw UInt32,
			rows_clean UInt32,
			tabular_mse Float64,
			tabular_r2 Float64,
			sequence_loss Float64,
			sequence_used Bool,
			model_version String
		) ENGINE = MergeTree()
		ORDER BY started_at
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		SensorRecordsTableSQL,
		IrrigationPredictionsTableSQL,
		TrainingRunsTableSQL,
	}
}
