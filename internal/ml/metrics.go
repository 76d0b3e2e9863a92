package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// RegressionMetrics holds hold-out evaluation results
type RegressionMetrics struct {
	MSE  float64 `json:"mse" yaml:"mse"`
	RMSE float64 `json:"rmse" yaml:"rmse"`
	MAE  float64 `json:"mae" yaml:"mae"`
	R2   float64 `json:"r2" yaml:"r2"`
	N    int     `json:"n" yaml:"n"`
}

// CalculateRegressionMetrics compares predictions against true values.
// R2 is 0 when the true values have no variance and the fit is not exact.
func CalculateRegressionMetrics(yTrue, yPred []float64) (*RegressionMetrics, error) {
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("no samples to evaluate")
	}
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("length mismatch: %d true values, %d predictions", len(yTrue), len(yPred))
	}

	var sse, sae float64
	for i := range yTrue {
		d := yPred[i] - yTrue[i]
		sse += d * d
		sae += math.Abs(d)
	}
	n := float64(len(yTrue))

	m := &RegressionMetrics{
		MSE: sse / n,
		MAE: sae / n,
		N:   len(yTrue),
	}
	m.RMSE = math.Sqrt(m.MSE)

	if stat.Variance(yTrue, nil) > 0 {
		m.R2 = stat.RSquaredFrom(yPred, yTrue, nil)
	} else if sse == 0 {
		m.R2 = 1
	}
	if math.IsNaN(m.R2) || math.IsInf(m.R2, 0) {
		m.R2 = 0
	}

	return m, nil
}

// String formats the metrics for logs
func (m *RegressionMetrics) String() string {
	return fmt.Sprintf("MSE=%.4f RMSE=%.4f MAE=%.4f R2=%.4f (n=%d)", m.MSE, m.RMSE, m.MAE, m.R2, m.N)
}
