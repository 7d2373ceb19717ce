package ml

import (
	"errors"
	"math"
	"math/rand"

	"github.com/skywatch/flights-backend-go/internal/stats"
)

const (
	defaultTrees      = 100
	defaultSampleSize = 256
)

// treeNode is a node in an isolation tree. Fields are exported for gob.
type treeNode struct {
	SplitFeature int
	SplitValue   float64
	Left         *treeNode
	Right        *treeNode
	Size         int // samples that reached this leaf
}

// IsolationForest isolates anomalies with an ensemble of randomized
// partitioning trees. Anomaly score per sample is 2^(-E[path]/c(n)) in (0,1],
// higher meaning more anomalous. Exported fields are the serialized state.
type IsolationForest struct {
	NumTrees      int
	SampleSize    int
	Contamination float64
	AvgPath       float64
	// Offset is the 100*(1-contamination) percentile of training scores.
	// Decision score = Offset - score; negative means anomaly.
	Offset float64
	Trees  []*treeNode

	maxDepth int
	rng      *rand.Rand
}

// NewIsolationForest creates a forest with the recommended defaults:
// 100 trees, subsample min(256, n), all features, no bootstrap.
func NewIsolationForest(contamination float64, seed int64) *IsolationForest {
	return &IsolationForest{
		NumTrees:      defaultTrees,
		SampleSize:    defaultSampleSize,
		Contamination: contamination,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Fit builds the ensemble on the given feature matrix
func (f *IsolationForest) Fit(data [][]float64) error {
	if len(data) == 0 {
		return errors.New("empty training data")
	}
	if f.rng == nil {
		f.rng = rand.New(rand.NewSource(42))
	}

	nSamples := len(data)
	nFeatures := len(data[0])

	sampleSize := f.SampleSize
	if sampleSize > nSamples {
		sampleSize = nSamples
	}
	f.maxDepth = int(math.Ceil(math.Log2(float64(sampleSize))))
	if f.maxDepth < 1 {
		f.maxDepth = 1
	}

	trees := make([]*treeNode, f.NumTrees)
	for i := 0; i < f.NumTrees; i++ {
		// Subsample without replacement
		indices := f.rng.Perm(nSamples)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}
		trees[i] = f.buildNode(sample, nFeatures, 0)
	}

	f.Trees = trees
	f.AvgPath = averagePathLength(float64(sampleSize))

	scores := f.Scores(data)
	f.Offset = stats.Percentile(scores, 100*(1-f.Contamination))

	return nil
}

func (f *IsolationForest) buildNode(data [][]float64, nFeatures, depth int) *treeNode {
	n := len(data)
	if depth >= f.maxDepth || n <= 1 {
		return &treeNode{Size: n}
	}

	feature := f.rng.Intn(nFeatures)

	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		if row[feature] < minVal {
			minVal = row[feature]
		}
		if row[feature] > maxVal {
			maxVal = row[feature]
		}
	}
	if minVal == maxVal {
		return &treeNode{Size: n}
	}

	splitValue := minVal + f.rng.Float64()*(maxVal-minVal)

	var leftData, rightData [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			leftData = append(leftData, row)
		} else {
			rightData = append(rightData, row)
		}
	}

	return &treeNode{
		SplitFeature: feature,
		SplitValue:   splitValue,
		Left:         f.buildNode(leftData, nFeatures, depth+1),
		Right:        f.buildNode(rightData, nFeatures, depth+1),
	}
}

// Fitted reports whether the forest has been trained
func (f *IsolationForest) Fitted() bool {
	return len(f.Trees) > 0
}

// Scores returns anomaly scores in (0, 1], higher = more anomalous
func (f *IsolationForest) Scores(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	for i, sample := range data {
		scores[i] = f.scoreOne(sample)
	}
	return scores
}

// DecisionScores returns Offset - score per sample; higher means more normal
// and negative values are anomalies under the fitted contamination.
func (f *IsolationForest) DecisionScores(data [][]float64) []float64 {
	out := make([]float64, len(data))
	for i, sample := range data {
		out[i] = f.Offset - f.scoreOne(sample)
	}
	return out
}

func (f *IsolationForest) scoreOne(sample []float64) float64 {
	var totalPath float64
	for _, tree := range f.Trees {
		totalPath += pathLength(sample, tree, 0)
	}
	avgPath := totalPath / float64(len(f.Trees))

	if f.AvgPath == 0 {
		return 0.5
	}
	return math.Pow(2, -avgPath/f.AvgPath)
}

func pathLength(sample []float64, n *treeNode, depth int) float64 {
	if n.Left == nil && n.Right == nil {
		return float64(depth) + averagePathLength(float64(n.Size))
	}
	if sample[n.SplitFeature] < n.SplitValue {
		return pathLength(sample, n.Left, depth+1)
	}
	return pathLength(sample, n.Right, depth+1)
}

// averagePathLength returns the average path length of unsuccessful search in
// a BST: c(n) = 2*H(n-1) - 2*(n-1)/n, with H(n) ~ ln(n) + Euler-Mascheroni.
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+0.5772156649) - 2*(n-1)/n
}
