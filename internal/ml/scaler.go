package ml

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler standardizes feature columns to zero mean and unit variance.
// Transform before Fit is an error; re-fitting overwrites prior statistics.
type StandardScaler struct {
	Mean   []float64
	Scale  []float64
	Fitted bool
}

// NewStandardScaler creates an unfitted scaler
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes per-column mean and standard deviation
func (s *StandardScaler) Fit(data [][]float64) error {
	if len(data) == 0 {
		return errors.New("cannot fit scaler on empty data")
	}

	cols := len(data[0])
	mean := make([]float64, cols)
	scale := make([]float64, cols)

	for _, row := range data {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(data))
	}

	for _, row := range data {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / float64(len(data)))
		// Constant columns pass through unscaled instead of dividing by zero
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	s.Mean = mean
	s.Scale = scale
	s.Fitted = true
	return nil
}

// Transform applies (x - mean) / std per column using fitted statistics
func (s *StandardScaler) Transform(data [][]float64) ([][]float64, error) {
	if !s.Fitted {
		return nil, errors.New("scaler is not fitted")
	}

	out := make([][]float64, len(data))
	for i, row := range data {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("scaler column mismatch: fitted with %d columns, got %d", len(s.Mean), len(row))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}
