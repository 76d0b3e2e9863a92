// Command predict prints the irrigation recommendation for one request given
// as a JSON argument, or read from stdin when the argument is "-".
//
//	predict '{"sensor_data": {"soil_moisture": [28.4, 30.1], "temperature": 29.5, "humidity": 45}}'
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/artifacts"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/predictor"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/pkg/config"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s '<request json>' | -\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

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

	req, err := readRequest(flag.Arg(0), os.Stdin)
	if err != nil {
		logger.Fatal("Invalid request", zap.Error(err))
	}

	// A missing model still yields a "no model" recommendation
	p, _ := predictor.Load(artifacts.NewStore(cfg.ModelDir, logger), pipeline.PredictorConfig(), logger)

	pred, _, err := p.Predict(req, nil)
	if err != nil {
		logger.Fatal("Prediction failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pred); err != nil {
		logger.Fatal("Failed to write prediction", zap.Error(err))
	}
}

func readRequest(arg string, stdin io.Reader) (*models.PredictionRequest, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		if data, err = io.ReadAll(stdin); err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	var req models.PredictionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}
