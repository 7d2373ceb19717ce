package ml

import (
	"encoding/gob"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/skywatch/flights-backend-go/internal/features"
	"github.com/skywatch/flights-backend-go/internal/models"
)

// ModelVersion is the semantic version embedded in saved artifacts and in
// every anomaly record the model produces.
const ModelVersion = "1.0.0"

// DefaultModelDir is the conventional location for saved model artifacts
const DefaultModelDir = "data/models"

// Model wraps the isolation forest, the fitted scaler and the feature
// configuration as one unit with a train/predict/save/load lifecycle.
// Callers own the instance: construct or load once, inject where needed.
type Model struct {
	forest        *IsolationForest
	scaler        *StandardScaler
	extractor     *features.Extractor
	featureNames  []string
	contamination float64
	version       string
	seed          int64
	fitted        bool
}

// Option configures a Model
type Option func(*Model)

// WithContamination sets the expected outlier fraction
func WithContamination(c float64) Option {
	return func(m *Model) {
		m.contamination = c
	}
}

// WithSeed sets the random seed for reproducible training
func WithSeed(seed int64) Option {
	return func(m *Model) {
		m.seed = seed
	}
}

// NewModel creates an unfitted model with the given options
func NewModel(opts ...Option) *Model {
	m := &Model{
		extractor:     features.NewExtractor(),
		contamination: 0.1,
		version:       ModelVersion,
		seed:          42,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsFitted reports whether the model can score
func (m *Model) IsFitted() bool {
	return m.fitted
}

// Version returns the model's semantic version
func (m *Model) Version() string {
	return m.version
}

// Contamination returns the configured outlier fraction
func (m *Model) Contamination() float64 {
	return m.contamination
}

// FeatureNames returns the columns the model was trained with
func (m *Model) FeatureNames() []string {
	return m.featureNames
}

// Train fits the scaler and the forest on the given flight points. On any
// failure the model keeps its previous state; the fitted flag only flips on
// full success.
func (m *Model) Train(points []models.FlightPoint) (*models.TrainingReport, error) {
	start := time.Now()

	if len(points) == 0 {
		return nil, &InsufficientDataError{Samples: 0}
	}

	log.Printf("[AnomalyModel] Training on %d flight points (contamination=%v)", len(points), m.contamination)

	extractor := features.NewExtractor()
	table := extractor.Extract(points)

	scaler := NewStandardScaler()
	if err := scaler.Fit(table.Rows); err != nil {
		return nil, &TrainingError{Err: err}
	}
	scaled, err := scaler.Transform(table.Rows)
	if err != nil {
		return nil, &TrainingError{Err: err}
	}

	forest := NewIsolationForest(m.contamination, m.seed)
	if err := forest.Fit(scaled); err != nil {
		return nil, &TrainingError{Err: err}
	}

	m.forest = forest
	m.scaler = scaler
	m.extractor = extractor
	m.featureNames = extractor.FeatureNames()
	m.fitted = true

	elapsed := time.Since(start)
	log.Printf("[AnomalyModel] Training completed in %.2fs (%d samples, %d features)",
		elapsed.Seconds(), table.Len(), len(m.featureNames))

	return &models.TrainingReport{
		Samples:         table.Len(),
		FeatureCount:    len(m.featureNames),
		FeatureNames:    m.featureNames,
		Contamination:   m.contamination,
		ModelVersion:    m.version,
		TrainingSeconds: elapsed.Seconds(),
	}, nil
}

// Predictions holds per-row scoring output aligned with the extracted
// feature table's row order.
type Predictions struct {
	IsAnomaly  []bool
	Confidence []float64
	Features   *features.Table
}

// Predict scores the given flight points. Confidence maps the decision score
// through 1/(1+exp(raw)) so lower raw scores (more anomalous) approach 1.
func (m *Model) Predict(points []models.FlightPoint) (*Predictions, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}

	table := m.extractor.Extract(points)
	if !sameColumns(m.featureNames, table.Names) {
		return nil, &ShapeMismatchError{Want: m.featureNames, Got: table.Names}
	}

	scaled, err := m.scaler.Transform(table.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scale features: %w", err)
	}

	decision := m.forest.DecisionScores(scaled)

	isAnomaly := make([]bool, len(decision))
	confidence := make([]float64, len(decision))
	for i, raw := range decision {
		isAnomaly[i] = raw < 0
		confidence[i] = 1 / (1 + math.Exp(raw))
	}

	return &Predictions{
		IsAnomaly:  isAnomaly,
		Confidence: confidence,
		Features:   table,
	}, nil
}

// modelBlob is the serialized artifact layout
type modelBlob struct {
	Version       string
	Contamination float64
	Seed          int64
	FeatureNames  []string
	Scaler        *StandardScaler
	Forest        *IsolationForest
	SavedAt       time.Time
}

// DefaultArtifactPath returns the conventional version-suffixed model path
func DefaultArtifactPath(version string) string {
	return filepath.Join(DefaultModelDir, fmt.Sprintf("anomaly_model_v%s.gob", version))
}

// Save persists the fitted model as a single opaque blob and returns the
// path written. An empty path uses the conventional models directory.
func (m *Model) Save(path string) (string, error) {
	if !m.fitted {
		return "", ErrNotFitted
	}

	if path == "" {
		path = DefaultArtifactPath(m.version)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create model directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create model file: %w", err)
	}
	defer file.Close()

	blob := modelBlob{
		Version:       m.version,
		Contamination: m.contamination,
		Seed:          m.seed,
		FeatureNames:  m.featureNames,
		Scaler:        m.scaler,
		Forest:        m.forest,
		SavedAt:       time.Now().UTC(),
	}
	if err := gob.NewEncoder(file).Encode(&blob); err != nil {
		return "", fmt.Errorf("failed to encode model: %w", err)
	}

	log.Printf("[AnomalyModel] Model saved to %s", path)
	return path, nil
}

// Load restores a saved model. Corrupt or schema-mismatched blobs leave the
// current state untouched and return the cause.
func (m *Model) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		log.Printf("[AnomalyModel] Failed to load model from %s: %v", path, err)
		return fmt.Errorf("failed to open model file: %w", err)
	}
	defer file.Close()

	var blob modelBlob
	if err := gob.NewDecoder(file).Decode(&blob); err != nil {
		log.Printf("[AnomalyModel] Failed to load model from %s: %v", path, err)
		return fmt.Errorf("failed to decode model: %w", err)
	}

	if blob.Forest == nil || !blob.Forest.Fitted() || blob.Scaler == nil || !blob.Scaler.Fitted || len(blob.FeatureNames) == 0 {
		log.Printf("[AnomalyModel] Model blob at %s is incomplete (version %q)", path, blob.Version)
		return fmt.Errorf("model blob is incomplete or schema-mismatched (version %q)", blob.Version)
	}

	m.forest = blob.Forest
	m.scaler = blob.Scaler
	m.extractor = features.NewExtractor()
	m.featureNames = blob.FeatureNames
	m.contamination = blob.Contamination
	m.seed = blob.Seed
	m.version = blob.Version
	m.fitted = true

	log.Printf("[AnomalyModel] Model loaded from %s (version: %s)", path, m.version)
	return nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
