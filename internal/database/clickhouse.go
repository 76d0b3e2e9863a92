package database

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

const sensorRecordColumns = `
	record_id, collection, plot_id, recorded_at, soil_moisture,
	temperature, humidity, light_intensity, is_raining, rainfall_forecast,
	days_since_irrigation, crop_stage, soil_type, irrigation_duration
`

type ClickHouseDB struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(ctx context.Context, addr, database, username, password string, logger *zap.Logger) (*ClickHouseDB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.Info("Connected to ClickHouse", zap.String("addr", addr), zap.String("database", database))

	db := &ClickHouseDB{conn: conn, logger: logger.Named("clickhouse")}

	if err := db.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	db.logger.Info("Database schema initialized successfully")
	return nil
}

// SaveSensorRecord stores one live reading
func (db *ClickHouseDB) SaveSensorRecord(ctx context.Context, rec *models.SensorRecord) error {
	query := `INSERT INTO sensor_records (` + sensorRecordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	moisture := rec.SoilMoisture
	if moisture == nil {
		moisture = []float64{}
	}

	err := db.conn.Exec(ctx, query,
		rec.RecordID,
		rec.Collection,
		rec.PlotID,
		rec.RecordedAt,
		moisture,
		rec.Temperature,
		rec.Humidity,
		rec.LightIntensity,
		rec.IsRaining,
		rec.RainfallForecast,
		rec.DaysSinceIrrigation,
		rec.CropStage,
		rec.SoilType,
		rec.IrrigationDuration,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sensor record: %w", err)
	}
	return nil
}

// GetAllRecords returns every reading of a collection, oldest first, as
// loosely typed records for the cleaner.
func (db *ClickHouseDB) GetAllRecords(ctx context.Context, path string) ([]models.RawRecord, error) {
	query := `SELECT ` + sensorRecordColumns + `
		FROM sensor_records
		WHERE collection = ?
		ORDER BY recorded_at ASC, record_id ASC`

	records, err := db.queryRecords(ctx, query, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", path, err)
	}

	raw := make([]models.RawRecord, len(records))
	for i := range records {
		raw[i] = records[i].Raw()
	}
	db.logger.Debug("Fetched historical records", zap.String("collection", path), zap.Int("count", len(raw)))
	return raw, nil
}

// GetRecentRecords returns the latest limit readings of a plot, oldest first
func (db *ClickHouseDB) GetRecentRecords(ctx context.Context, collection, plotID string, limit int) ([]models.SensorRecord, error) {
	query := `SELECT ` + sensorRecordColumns + `
		FROM sensor_records
		WHERE collection = ? AND plot_id = ?
		ORDER BY recorded_at DESC, record_id DESC
		LIMIT ?`

	records, err := db.queryRecords(ctx, query, collection, plotID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history of plot %s: %w", plotID, err)
	}
	slices.Reverse(records)
	return records, nil
}

func (db *ClickHouseDB) queryRecords(ctx context.Context, query string, args ...any) ([]models.SensorRecord, error) {
	rows, err := db.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SensorRecord
	for rows.Next() {
		var rec models.SensorRecord
		if err := rows.Scan(
			&rec.RecordID,
			&rec.Collection,
			&rec.PlotID,
			&rec.RecordedAt,
			&rec.SoilMoisture,
			&rec.Temperature,
			&rec.Humidity,
			&rec.LightIntensity,
			&rec.IsRaining,
			&rec.RainfallForecast,
			&rec.DaysSinceIrrigation,
			&rec.CropStage,
			&rec.SoilType,
			&rec.IrrigationDuration,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sensor record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SavePrediction saves a live prediction with the features it was made from
func (db *ClickHouseDB) SavePrediction(ctx context.Context, p *models.PredictionLog) error {
	query := `
		INSERT INTO irrigation_predictions (prediction_id, plot_id, timestamp, needs_irrigation, duration_minutes,
			confidence, available, sources, model_version, recommendations, features)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	sources := p.Sources
	if sources == nil {
		sources = []string{}
	}
	recommendations := p.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}

	err := db.conn.Exec(ctx, query,
		p.PredictionID,
		p.PlotID,
		p.Timestamp,
		p.NeedsIrrigation,
		int32(p.DurationMinutes),
		p.Confidence,
		p.Available,
		sources,
		p.ModelVersion,
		recommendations,
		p.Features.Slice(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// SaveTrainingRun records the outcome of a training run
func (db *ClickHouseDB) SaveTrainingRun(ctx context.Context, run *models.TrainingRun) error {
	query := `
		INSERT INTO training_runs (run_id, started_at, finished_at, status, error, rows_raw, rows_clean,
			tabular_mse, tabular_r2, sequence_loss, sequence_used, model_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		run.RunID,
		run.StartedAt,
		run.FinishedAt,
		run.Status,
		run.Error,
		uint32(run.RowsRaw),
		uint32(run.RowsClean),
		run.TabularMSE,
		run.TabularR2,
		run.SequenceLoss,
		run.SequenceUsed,
		run.ModelVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to insert training run: %w", err)
	}
	return nil
}

// GetLastTrainingRun returns the most recent training run, nil when none
// has been recorded.
func (db *ClickHouseDB) GetLastTrainingRun(ctx context.Context) (*models.TrainingRun, error) {
	query := `
		SELECT run_id, started_at, finished_at, status, error, rows_raw, rows_clean,
			tabular_mse, tabular_r2, sequence_loss, sequence_used, model_version
		FROM training_runs
		ORDER BY started_at DESC
		LIMIT 1
	`

	rows, err := db.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var (
		rowsRaw, rowsClean uint32
		out                models.TrainingRun
	)
	if err := rows.Scan(
		&out.RunID,
		&out.StartedAt,
		&out.FinishedAt,
		&out.Status,
		&out.Error,
		&rowsRaw,
		&rowsClean,
		&out.TabularMSE,
		&out.TabularR2,
		&out.SequenceLoss,
		&out.SequenceUsed,
		&out.ModelVersion,
	); err != nil {
		return nil, fmt.Errorf("failed to scan training run: %w", err)
	}
	out.RowsRaw = int(rowsRaw)
	out.RowsClean = int(rowsClean)
	return &out, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		db.logger.Info("ClickHouse connection closed")
	}
	return nil
}
