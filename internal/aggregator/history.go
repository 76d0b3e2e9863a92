// Package aggregator keeps the recent feature history of every plot so the
// sequence model can be given a window at inference time.
package aggregator

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// PlotState holds the bounded history of one plot, oldest first
type PlotState struct {
	PlotID  string
	vectors []models.FeatureVector
	seeded  bool
	mu      sync.RWMutex
}

// HistoryBuffer buffers feature vectors per plot
type HistoryBuffer struct {
	plots    map[string]*PlotState
	capacity int
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewHistoryBuffer creates a buffer keeping at most capacity vectors per plot
func NewHistoryBuffer(capacity int, logger *zap.Logger) *HistoryBuffer {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryBuffer{
		plots:    make(map[string]*PlotState),
		capacity: capacity,
		logger:   logger.Named("history"),
	}
}

// Capacity returns the per-plot limit
func (hb *HistoryBuffer) Capacity() int {
	return hb.capacity
}

func (hb *HistoryBuffer) getOrCreatePlot(plotID string) *PlotState {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	if plot, exists := hb.plots[plotID]; exists {
		return plot
	}

	plot := &PlotState{PlotID: plotID}
	hb.plots[plotID] = plot
	return plot
}

// Append adds the latest vector of a plot, evicting the oldest beyond capacity
func (hb *HistoryBuffer) Append(plotID string, v models.FeatureVector) {
	plot := hb.getOrCreatePlot(plotID)

	plot.mu.Lock()
	defer plot.mu.Unlock()
	plot.vectors = hb.trim(append(plot.vectors, v))
}

// Seed prepends stored history to a plot the first time it is seen. It
// reports false when the plot was already seeded.
func (hb *HistoryBuffer) Seed(plotID string, history []models.FeatureVector) bool {
	plot := hb.getOrCreatePlot(plotID)

	plot.mu.Lock()
	defer plot.mu.Unlock()
	if plot.seeded {
		return false
	}
	plot.seeded = true

	merged := make([]models.FeatureVector, 0, len(history)+len(plot.vectors))
	merged = append(merged, history...)
	merged = append(merged, plot.vectors...)
	plot.vectors = hb.trim(merged)

	hb.logger.Debug("Seeded plot history", zap.String("plot_id", plotID), zap.Int("vectors", len(plot.vectors)))
	return true
}

// Seeded reports whether stored history was already loaded for a plot
func (hb *HistoryBuffer) Seeded(plotID string) bool {
	hb.mu.RLock()
	plot, ok := hb.plots[plotID]
	hb.mu.RUnlock()
	if !ok {
		return false
	}

	plot.mu.RLock()
	defer plot.mu.RUnlock()
	return plot.seeded
}

// Window returns a copy of the last n vectors of a plot, oldest first.
// Fewer are returned when the plot has less history; n <= 0 returns all.
func (hb *HistoryBuffer) Window(plotID string, n int) []models.FeatureVector {
	hb.mu.RLock()
	plot, ok := hb.plots[plotID]
	hb.mu.RUnlock()
	if !ok {
		return nil
	}

	plot.mu.RLock()
	defer plot.mu.RUnlock()
	start := 0
	if n > 0 && len(plot.vectors) > n {
		start = len(plot.vectors) - n
	}
	out := make([]models.FeatureVector, len(plot.vectors)-start)
	copy(out, plot.vectors[start:])
	return out
}

// Len returns the number of buffered vectors of a plot
func (hb *HistoryBuffer) Len(plotID string) int {
	hb.mu.RLock()
	plot, ok := hb.plots[plotID]
	hb.mu.RUnlock()
	if !ok {
		return 0
	}

	plot.mu.RLock()
	defer plot.mu.RUnlock()
	return len(plot.vectors)
}

// GetAllPlots returns all plot IDs, sorted
func (hb *HistoryBuffer) GetAllPlots() []string {
	hb.mu.RLock()
	defer hb.mu.RUnlock()

	plots := make([]string, 0, len(hb.plots))
	for plotID := range hb.plots {
		plots = append(plots, plotID)
	}
	sort.Strings(plots)
	return plots
}

func (hb *HistoryBuffer) trim(vs []models.FeatureVector) []models.FeatureVector {
	if len(vs) <= hb.capacity {
		return vs
	}
	out := make([]models.FeatureVector, hb.capacity)
	copy(out, vs[len(vs)-hb.capacity:])
	return out
}
