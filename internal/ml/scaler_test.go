package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalerTransformBeforeFit(t *testing.T) {
	s := NewStandardScaler()
	_, err := s.Transform([][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestScalerFitEmpty(t *testing.T) {
	s := NewStandardScaler()
	assert.Error(t, s.Fit(nil))
}

func TestScalerStandardizes(t *testing.T) {
	data := [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
	}

	s := NewStandardScaler()
	require.NoError(t, s.Fit(data))

	out, err := s.Transform(data)
	require.NoError(t, err)

	// Each column has zero mean and unit variance after scaling
	for col := 0; col < 2; col++ {
		var sum, sumSq float64
		for _, row := range out {
			sum += row[col]
			sumSq += row[col] * row[col]
		}
		assert.InDelta(t, 0.0, sum/3, 1e-9)
		assert.InDelta(t, 1.0, sumSq/3, 1e-9)
	}
}

func TestScalerConstantColumn(t *testing.T) {
	data := [][]float64{
		{5, 1},
		{5, 2},
		{5, 3},
	}

	s := NewStandardScaler()
	require.NoError(t, s.Fit(data))

	out, err := s.Transform(data)
	require.NoError(t, err)

	// Constant column centers to zero without dividing by zero
	for _, row := range out {
		assert.Equal(t, 0.0, row[0])
	}
}

func TestScalerColumnMismatch(t *testing.T) {
	s := NewStandardScaler()
	require.NoError(t, s.Fit([][]float64{{1, 2}, {3, 4}}))

	_, err := s.Transform([][]float64{{1, 2, 3}})
	assert.Error(t, err)
}

func TestScalerRefitOverwrites(t *testing.T) {
	s := NewStandardScaler()
	require.NoError(t, s.Fit([][]float64{{0}, {2}}))
	first := s.Mean[0]

	require.NoError(t, s.Fit([][]float64{{10}, {30}}))
	assert.NotEqual(t, first, s.Mean[0])
	assert.InDelta(t, 20.0, s.Mean[0], 1e-9)
}
