package features

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// Source keys of historical records. Where several aliases exist the first
// one present wins.
var (
	keysSoilMoisture = []string{"soil_moisture", "soil_moisture_avg"}
	keysTemperature  = []string{"temperature"}
	keysHumidity     = []string{"humidity"}
	keysLight        = []string{"lightIntensity", "light_intensity"}
	keysRainfall     = []string{"rainfall_forecast", "rainfall_24h"}
	keysDaysSince    = []string{"days_since_last_irrigation", "days_since_irrigation"}
	keysCropStage    = []string{"crop_stage", "growth_stage"}
	keysSoilType     = []string{"soil_type"}
	keysDuration     = []string{"irrigation_duration"}
)

// Cleaner converts raw historical records into a typed training dataset
type Cleaner struct {
	defaults Defaults
	logger   *zap.Logger
}

// NewCleaner creates a cleaner filling optional fields from defaults
func NewCleaner(defaults Defaults, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		defaults: defaults,
		logger:   logger.Named("cleaner"),
	}
}

// Clean converts records in the order given. Rows missing soil moisture,
// temperature, humidity or a non-negative duration label are dropped.
// An empty result is not an error; empty input is.
func (c *Cleaner) Clean(records []models.RawRecord) (*models.Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("clean records: %w", models.ErrNoData)
	}

	ds := &models.Dataset{Rows: make([]models.TrainingRow, 0, len(records))}
	dropped := 0
	for _, rec := range records {
		row, ok := c.cleanRecord(rec)
		if !ok {
			dropped++
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}

	c.logger.Info("Cleaned historical records",
		zap.Int("raw", len(records)),
		zap.Int("clean", ds.Len()),
		zap.Int("dropped", dropped),
	)
	return ds, nil
}

// OrderByID flattens an id-keyed collection into records sorted by id.
// Push-style ids sort in insertion order.
func OrderByID(records map[string]map[string]any) []models.RawRecord {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ordered := make([]models.RawRecord, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, models.RawRecord{ID: id, Fields: records[id]})
	}
	return ordered
}

func (c *Cleaner) cleanRecord(rec models.RawRecord) (models.TrainingRow, bool) {
	row := models.TrainingRow{ID: rec.ID}
	f := rec.Fields
	if f == nil {
		return row, false
	}

	moisture, ok := moistureField(f)
	if !ok {
		return row, false
	}
	temperature, ok := numberField(f, keysTemperature)
	if !ok {
		return row, false
	}
	humidity, ok := numberField(f, keysHumidity)
	if !ok {
		return row, false
	}
	duration, ok := numberField(f, keysDuration)
	if !ok || duration < 0 {
		return row, false
	}

	row.Features[models.FeatSoilMoistureAvg] = moisture
	row.Features[models.FeatTemperature] = temperature
	row.Features[models.FeatHumidity] = humidity
	row.Features[models.FeatLightIntensity] = numberOr(f, keysLight, c.defaults.LightIntensity)
	row.Features[models.FeatRainfallForecast] = numberOr(f, keysRainfall, c.defaults.RainfallForecast)
	row.Features[models.FeatDaysSinceIrrigation] = numberOr(f, keysDaysSince, c.defaults.DaysSinceIrrigation)
	row.Features[models.FeatCropStage] = numberOr(f, keysCropStage, c.defaults.CropStage)
	row.Features[models.FeatSoilType] = numberOr(f, keysSoilType, c.defaults.SoilType)
	row.Duration = duration

	return row, true
}

// lookup returns the value of the first alias present in f
func lookup(f map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func numberField(f map[string]any, keys []string) (float64, bool) {
	v, ok := lookup(f, keys)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func numberOr(f map[string]any, keys []string, def float64) float64 {
	if n, ok := numberField(f, keys); ok {
		return n
	}
	return def
}

// moistureField reads soil moisture as a scalar or a sequence of readings.
// A sequence with any unparseable reading counts as missing.
func moistureField(f map[string]any) (float64, bool) {
	v, ok := lookup(f, keysSoilMoisture)
	if !ok {
		return 0, false
	}

	var readings []float64
	switch seq := v.(type) {
	case []float64:
		readings = seq
	case []any:
		readings = make([]float64, 0, len(seq))
		for _, item := range seq {
			n, ok := toFloat(item)
			if !ok {
				return 0, false
			}
			readings = append(readings, n)
		}
	default:
		n, ok := toFloat(v)
		if !ok {
			return 0, false
		}
		return n, true
	}

	for _, r := range readings {
		if !finite(r) {
			return 0, false
		}
	}
	return MoistureAverage(readings)
}

// toFloat coerces a loosely typed value; anything unparseable is missing
func toFloat(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint32:
		n = float64(x)
	case uint64:
		n = float64(x)
	case bool:
		if x {
			n = 1
		}
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if !finite(n) {
		return 0, false
	}
	return n, true
}

func finite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}
