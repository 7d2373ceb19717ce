package detection

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch/flights-backend-go/internal/ml"
	"github.com/skywatch/flights-backend-go/internal/models"
)

// fakeFlightSource serves points from memory, ordered the way the repository
// would order them
type fakeFlightSource struct {
	points       []models.FlightPoint
	batchedCalls [][]string
	err          error
}

func (f *fakeFlightSource) PointsByFlightIDs(flightIDs []string) ([]models.FlightPoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batchedCalls = append(f.batchedCalls, flightIDs)

	wanted := make(map[string]bool, len(flightIDs))
	for _, id := range flightIDs {
		wanted[id] = true
	}
	var out []models.FlightPoint
	for _, p := range f.points {
		if wanted[p.FlightID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeFlightSource) AllPoints() ([]models.FlightPoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

func (f *fakeFlightSource) DistinctFlightIDs() ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, p := range f.points {
		if !seen[p.FlightID] {
			seen[p.FlightID] = true
			ids = append(ids, p.FlightID)
		}
	}
	return ids, nil
}

// fakeAnomalySink records writes and can force per-record failures
type fakeAnomalySink struct {
	created   []*models.AnomalyRecord
	failEvery func(i int) bool
}

func (f *fakeAnomalySink) BulkCreate(records []*models.AnomalyRecord) []models.IngestResult {
	results := make([]models.IngestResult, 0, len(records))
	for i, rec := range records {
		if f.failEvery != nil && f.failEvery(i) {
			results = append(results, models.IngestResult{
				Record:  rec,
				Outcome: models.IngestFailed,
				Err:     errors.New("forced write failure"),
			})
			continue
		}
		f.created = append(f.created, rec)
		results = append(results, models.IngestResult{Record: rec, Outcome: models.IngestCreated})
	}
	return results
}

// cruisePoints generates smooth, plausible telemetry for one flight
func cruisePoints(flightID string, startID int64, n int) []models.FlightPoint {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	points := make([]models.FlightPoint, n)
	for i := 0; i < n; i++ {
		points[i] = models.FlightPoint{
			ID:         startID + int64(i),
			FlightID:   flightID,
			AircraftID: "AC-" + flightID,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Latitude:   40.0 + float64(i)*0.05,
			Longitude:  -74.0 + float64(i)*0.08,
			Altitude:   35000 + (i%4)*150,
			Speed:      450 + math.Sin(float64(i))*12,
			Heading:    88 + math.Cos(float64(i))*3,
		}
	}
	return points
}

// teleportPoints generates a flight with wild jumps in position, speed and
// altitude that the model should flag
func teleportPoints(flightID string, startID int64, n int) []models.FlightPoint {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	points := make([]models.FlightPoint, n)
	for i := 0; i < n; i++ {
		lat, lon := 40.0, -74.0
		alt, speed := 35000, 450.0
		if i%2 == 1 {
			lat, lon = 62.0, -40.0 // thousands of km away between samples
			alt, speed = 8000, 900
		}
		points[i] = models.FlightPoint{
			ID:         startID + int64(i),
			FlightID:   flightID,
			AircraftID: "AC-" + flightID,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Latitude:   lat,
			Longitude:  lon,
			Altitude:   alt,
			Speed:      speed,
			Heading:    float64((i * 170) % 360),
		}
	}
	return points
}

func trainedModel(t *testing.T, points []models.FlightPoint) *ml.Model {
	t.Helper()
	m := ml.NewModel(ml.WithContamination(0.1), ml.WithSeed(42))
	_, err := m.Train(points)
	require.NoError(t, err)
	return m
}

func fleet(flights, pointsPer int) []models.FlightPoint {
	var points []models.FlightPoint
	var id int64 = 1
	for f := 0; f < flights; f++ {
		flightID := fmt.Sprintf("FL%03d", f)
		points = append(points, cruisePoints(flightID, id, pointsPer)...)
		id += int64(pointsPer)
	}
	return points
}

func TestProcessBatchUnfittedModel(t *testing.T) {
	source := &fakeFlightSource{points: fleet(2, 5)}
	sink := &fakeAnomalySink{}
	p := NewPipeline(ml.NewModel(), source, sink)

	report := p.ProcessBatch([]string{"FL000"})

	assert.False(t, report.Success)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], "not trained")
	assert.Empty(t, sink.created)
}

func TestProcessBatchNoMatchingFlights(t *testing.T) {
	training := fleet(5, 10)
	source := &fakeFlightSource{points: training}
	sink := &fakeAnomalySink{}
	p := NewPipeline(trainedModel(t, training), source, sink)

	report := p.ProcessBatch([]string{"NOPE"})

	assert.False(t, report.Success)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], "no flights found")
	assert.Empty(t, sink.created)
}

func TestProcessBatchStoreError(t *testing.T) {
	training := fleet(5, 10)
	p := NewPipeline(trainedModel(t, training),
		&fakeFlightSource{err: errors.New("db down")}, &fakeAnomalySink{})

	report := p.ProcessBatch([]string{"FL000"})

	assert.False(t, report.Success)
	require.NotEmpty(t, report.Errors)
}

func TestProcessBatchFlagsAndPersistsAnomalies(t *testing.T) {
	training := fleet(20, 10)
	model := trainedModel(t, training)

	anomalous := teleportPoints("BAD01", 10_000, 8)
	source := &fakeFlightSource{points: append(fleet(3, 10), anomalous...)}
	sink := &fakeAnomalySink{}
	p := NewPipeline(model, source, sink)

	report := p.ProcessBatch([]string{"FL000", "FL001", "FL002", "BAD01"})

	require.True(t, report.Success)
	assert.Equal(t, 38, report.ProcessedFlights)
	require.Greater(t, report.AnomaliesDetected, 0, "teleporting flight should be flagged")
	assert.Equal(t, report.AnomaliesDetected, report.RecordsCreated)

	for _, rec := range sink.created {
		assert.NotEmpty(t, rec.AnomalyType)
		assert.NotEmpty(t, rec.RunID)
		assert.Equal(t, model.Version(), rec.ModelVersion)
		assert.GreaterOrEqual(t, rec.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, rec.ConfidenceScore, 1.0)
		assert.Equal(t, fmt.Sprintf("%d:%s", rec.FlightPointID, rec.ModelVersion), rec.DedupeKey)

		var details map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(rec.DetailsJSON), &details))
		assert.Contains(t, details, "features")
		assert.Contains(t, details, "model_contamination")
		assert.Contains(t, details, "run_id")
	}
}

func TestProcessBatchToleratesSingleWriteFailure(t *testing.T) {
	training := fleet(20, 10)
	model := trainedModel(t, training)

	anomalous := teleportPoints("BAD01", 10_000, 8)
	source := &fakeFlightSource{points: anomalous}
	sink := &fakeAnomalySink{failEvery: func(i int) bool { return i == 0 }}
	p := NewPipeline(model, source, sink)

	report := p.ProcessBatch([]string{"BAD01"})

	require.True(t, report.Success, "one bad record must not fail the batch")
	assert.Equal(t, 8, report.ProcessedFlights)
	require.Greater(t, report.AnomaliesDetected, 1)
	assert.Equal(t, report.AnomaliesDetected-1, report.RecordsCreated)
	assert.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "forced write failure")
}

func TestRunFullRetrainOnUniformFleet(t *testing.T) {
	source := &fakeFlightSource{points: fleet(20, 6)}
	sink := &fakeAnomalySink{}
	p := NewPipeline(ml.NewModel(ml.WithSeed(42)), source, sink)

	report := p.RunFull(true)

	require.True(t, report.Success)
	require.NotNil(t, report.Training)
	assert.Equal(t, 120, report.Training.Samples)
	assert.GreaterOrEqual(t, report.AnomaliesDetected, 0)
	assert.Equal(t, 120, report.FlightsProcessed)
}

func TestRunFullTrainingFailureAborts(t *testing.T) {
	source := &fakeFlightSource{points: nil}
	sink := &fakeAnomalySink{}
	p := NewPipeline(ml.NewModel(), source, sink)

	report := p.RunFull(true)

	assert.False(t, report.Success)
	assert.Contains(t, report.Error, "training failed")
	assert.Empty(t, sink.created)
}

func TestRunFullPartitionsBatches(t *testing.T) {
	source := &fakeFlightSource{points: fleet(250, 2)}
	sink := &fakeAnomalySink{}
	p := NewPipeline(ml.NewModel(ml.WithSeed(42)), source, sink)

	report := p.RunFull(true)
	require.True(t, report.Success)

	require.Len(t, source.batchedCalls, 3)
	assert.Len(t, source.batchedCalls[0], 100)
	assert.Len(t, source.batchedCalls[1], 100)
	assert.Len(t, source.batchedCalls[2], 50)
}

func TestRunFullSkipsTrainingWhenFitted(t *testing.T) {
	training := fleet(10, 8)
	model := trainedModel(t, training)
	source := &fakeFlightSource{points: training}
	p := NewPipeline(model, source, &fakeAnomalySink{})

	report := p.RunFull(false)

	require.True(t, report.Success)
	assert.Nil(t, report.Training, "fitted model must not retrain unless asked")
}

func TestRunFullCustomBatchSize(t *testing.T) {
	source := &fakeFlightSource{points: fleet(7, 2)}
	p := NewPipeline(ml.NewModel(ml.WithSeed(42)), source, &fakeAnomalySink{},
		WithBatchSize(3))

	report := p.RunFull(true)
	require.True(t, report.Success)
	require.Len(t, source.batchedCalls, 3)
	assert.Len(t, source.batchedCalls[2], 1)
}
