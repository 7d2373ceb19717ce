package ml

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusterData generates a deterministic two-feature cluster around (0, 0)
func clusterData(n int) [][]float64 {
	data := make([][]float64, n)
	for i := 0; i < n; i++ {
		data[i] = []float64{
			math.Sin(float64(i) * 0.7),
			math.Cos(float64(i) * 1.3),
		}
	}
	return data
}

func TestForestFitEmpty(t *testing.T) {
	f := NewIsolationForest(0.1, 42)
	assert.Error(t, f.Fit(nil))
	assert.False(t, f.Fitted())
}

func TestForestScoresInRange(t *testing.T) {
	data := clusterData(300)
	f := NewIsolationForest(0.1, 42)
	require.NoError(t, f.Fit(data))
	require.True(t, f.Fitted())

	scores := f.Scores(data)
	require.Len(t, scores, len(data))
	for _, s := range scores {
		assert.Greater(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestForestIsolatesOutliers(t *testing.T) {
	data := clusterData(500)
	f := NewIsolationForest(0.1, 42)
	require.NoError(t, f.Fit(data))

	normal := f.Scores([][]float64{{0.1, 0.2}})[0]
	outlier := f.Scores([][]float64{{120, -90}})[0]
	assert.Greater(t, outlier, normal)

	// Far-out points fall below the decision offset
	decision := f.DecisionScores([][]float64{{120, -90}})[0]
	assert.Less(t, decision, 0.0)
}

func TestForestDecisionOffsetMatchesContamination(t *testing.T) {
	data := clusterData(400)
	f := NewIsolationForest(0.1, 42)
	require.NoError(t, f.Fit(data))

	negatives := 0
	for _, d := range f.DecisionScores(data) {
		if d < 0 {
			negatives++
		}
	}

	// Roughly the contamination fraction of training rows scores negative
	assert.LessOrEqual(t, negatives, len(data)/5)
}

func TestForestGobRoundTrip(t *testing.T) {
	data := clusterData(200)
	f := NewIsolationForest(0.1, 42)
	require.NoError(t, f.Fit(data))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(f))

	restored := &IsolationForest{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(restored))
	require.True(t, restored.Fitted())

	want := f.DecisionScores(data)
	got := restored.DecisionScores(data)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12)
	}
}

func TestForestDeterministicWithSeed(t *testing.T) {
	data := clusterData(200)

	f1 := NewIsolationForest(0.1, 7)
	require.NoError(t, f1.Fit(data))
	f2 := NewIsolationForest(0.1, 7)
	require.NoError(t, f2.Fit(data))

	s1 := f1.Scores(data)
	s2 := f2.Scores(data)
	for i := range s1 {
		assert.Equal(t, s1[i], s2[i])
	}
}
