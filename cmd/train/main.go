// Command train runs one training pass over the stored sensor history and
// writes fresh model artifacts to MODEL_DIR.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/artifacts"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/database"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/features"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/trainer"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/pkg/config"
)

func main() {
	fromJSON := flag.String("from-json", "", "train from an exported JSON collection instead of ClickHouse")
	flag.Parse()

	cfg := config.Load()

	logger, err := cfg.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	pipeline, err := config.LoadPipeline(cfg.PipelineConfig)
	if err != nil {
		logger.Fatal("Failed to load pipeline config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		source   trainer.RecordSource
		recorder trainer.RunRecorder
	)
	if *fromJSON != "" {
		source = jsonSource{path: *fromJSON}
	} else {
		db, err := database.NewClickHouseDB(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass, logger)
		if err != nil {
			logger.Fatal("Failed to initialize ClickHouse", zap.Error(err))
		}
		defer db.Close()
		source, recorder = db, db
	}

	store := artifacts.NewStore(cfg.ModelDir, logger)
	result, err := trainer.New(source, store, recorder, pipeline.TrainerConfig(cfg.RecordPath), logger).Run(ctx)
	if err != nil {
		logger.Error("Training failed, previous artifacts kept", zap.Error(err))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Fatal("Failed to write training report", zap.Error(err))
	}
}

// jsonSource reads an id-keyed JSON export of the record collection. The
// collection path selects a top-level key when present, otherwise the whole
// document is taken as the collection.
type jsonSource struct {
	path string
}

func (s jsonSource) GetAllRecords(ctx context.Context, path string) ([]models.RawRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	if nested, ok := doc[path]; ok {
		doc = nil
		if err := json.Unmarshal(nested, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse collection %s: %w", path, err)
		}
	}

	collection := make(map[string]map[string]any, len(doc))
	for id, raw := range doc {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}
		collection[id] = fields
	}
	return features.OrderByID(collection), nil
}
