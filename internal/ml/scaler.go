package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// minScale is the smallest standard deviation treated as non-zero.
// Constant features get a scale of 1 so transform leaves them centred.
const minScale = 1e-12

// Scaler standardizes features to zero mean and unit variance
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes per-feature mean and population standard deviation
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("fit scaler: %w", models.ErrNoData)
	}

	dim := len(X[0])
	s := &Scaler{
		Mean:  make([]float64, dim),
		Scale: make([]float64, dim),
	}

	col := make([]float64, len(X))
	for j := 0; j < dim; j++ {
		for i, row := range X {
			if len(row) != dim {
				return nil, fmt.Errorf("fit scaler: row %d has %d features, expected %d", i, len(row), dim)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std < minScale {
			std = 1.0
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}

	return s, nil
}

// FitDataset fits a scaler on the feature matrix of ds
func FitDataset(ds *models.Dataset) (*Scaler, error) {
	if ds.Len() == 0 {
		return nil, fmt.Errorf("fit scaler: %w", models.ErrNoData)
	}
	return FitScaler(ds.Features())
}

// Fitted reports whether the scaler holds fitted statistics
func (s *Scaler) Fitted() bool {
	return s != nil && len(s.Mean) > 0 && len(s.Mean) == len(s.Scale)
}

// Dim returns the number of features the scaler was fit on
func (s *Scaler) Dim() int {
	if !s.Fitted() {
		return 0
	}
	return len(s.Mean)
}

// Transform returns (x - mean) / scale
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if err := s.check(len(x)); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// TransformAll transforms every row of X
func (s *Scaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}

// InverseTransform returns mean + scale*z
func (s *Scaler) InverseTransform(z []float64) ([]float64, error) {
	if err := s.check(len(z)); err != nil {
		return nil, err
	}
	out := make([]float64, len(z))
	for j, v := range z {
		out[j] = s.Mean[j] + s.Scale[j]*v
	}
	return out, nil
}

func (s *Scaler) check(dim int) error {
	if !s.Fitted() {
		return models.ErrNotFitted
	}
	if dim != len(s.Mean) {
		return fmt.Errorf("scaler expects %d features, got %d", len(s.Mean), dim)
	}
	return nil
}
