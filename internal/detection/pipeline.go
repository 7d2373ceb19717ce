package detection

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch/flights-backend-go/internal/ml"
	"github.com/skywatch/flights-backend-go/internal/models"
)

// DefaultBatchSize bounds memory and transaction size per pipeline batch
const DefaultBatchSize = 100

// FlightSource supplies flight points ordered by (flight_id, timestamp)
type FlightSource interface {
	PointsByFlightIDs(flightIDs []string) ([]models.FlightPoint, error)
	AllPoints() ([]models.FlightPoint, error)
	DistinctFlightIDs() ([]string, error)
}

// AnomalySink persists anomaly records, reporting a per-record outcome so a
// single bad record never aborts a bulk write
type AnomalySink interface {
	BulkCreate(records []*models.AnomalyRecord) []models.IngestResult
}

// Pipeline orchestrates model training and batch anomaly detection over the
// flight store. The trained model is injected; callers own its lifecycle.
type Pipeline struct {
	model     *ml.Model
	flights   FlightSource
	anomalies AnomalySink
	batchSize int
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithBatchSize sets the number of flights per full-run batch
func WithBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// NewPipeline creates a detection pipeline around an injected model and store
func NewPipeline(model *ml.Model, flights FlightSource, anomalies AnomalySink, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		model:     model,
		flights:   flights,
		anomalies: anomalies,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessBatch scores the given flights and persists an anomaly record for
// every point the model flags. The whole batch is computed in memory before
// any write; per-record write failures are collected, not raised.
func (p *Pipeline) ProcessBatch(flightIDs []string) *models.BatchReport {
	return p.processBatch(flightIDs, uuid.NewString())
}

func (p *Pipeline) processBatch(flightIDs []string, runID string) *models.BatchReport {
	start := time.Now()
	report := &models.BatchReport{Errors: []string{}}
	defer func() {
		report.ProcessingSeconds = time.Since(start).Seconds()
	}()

	if !p.model.IsFitted() {
		report.Errors = append(report.Errors, "model is not trained: train the model first")
		return report
	}

	points, err := p.flights.PointsByFlightIDs(flightIDs)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("failed to load flight points: %v", err))
		return report
	}
	if len(points) == 0 {
		report.Errors = append(report.Errors, "no flights found for the provided flight IDs")
		return report
	}

	predictions, err := p.model.Predict(points)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("prediction failed: %v", err))
		return report
	}

	detectedAt := time.Now().UTC()
	var records []*models.AnomalyRecord
	for i, point := range points {
		if !predictions.IsAnomaly[i] {
			continue
		}

		row := predictions.Features.Row(i)
		confidence := predictions.Confidence[i]

		details := map[string]interface{}{
			"features":            row.ToMap(),
			"confidence_score":    confidence,
			"model_contamination": p.model.Contamination(),
			"detection_timestamp": detectedAt.Format(time.RFC3339),
			"run_id":              runID,
		}
		detailsJSON, err := json.Marshal(details)
		if err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("failed to encode details for point %d: %v", point.ID, err))
			continue
		}

		records = append(records, &models.AnomalyRecord{
			FlightPointID:   point.ID,
			FlightID:        point.FlightID,
			AnomalyType:     Classify(row, confidence),
			ConfidenceScore: confidence,
			ModelVersion:    p.model.Version(),
			RunID:           runID,
			DetectedAt:      detectedAt,
			DetailsJSON:     string(detailsJSON),
			DedupeKey:       fmt.Sprintf("%d:%s", point.ID, p.model.Version()),
		})
	}

	if len(records) > 0 {
		for _, result := range p.anomalies.BulkCreate(records) {
			switch result.Outcome {
			case models.IngestCreated:
				report.RecordsCreated++
			case models.IngestSkipped:
				report.RecordsSkipped++
			case models.IngestFailed:
				report.Errors = append(report.Errors,
					fmt.Sprintf("failed to persist anomaly for point %d: %v", result.Record.FlightPointID, result.Err))
			}
		}
	}

	report.Success = true
	report.ProcessedFlights = len(points)
	report.AnomaliesDetected = len(records)

	log.Printf("[DetectionPipeline] Processed %d flight points, detected %d anomalies (%d created, %d skipped)",
		len(points), len(records), report.RecordsCreated, report.RecordsSkipped)

	return report
}

// RunFull runs the complete pipeline: train (when requested or unfitted),
// then detection over every flight in the store, in bounded batches.
// Training failure aborts the run; batch-level detection failures are
// recorded as warnings and the run continues.
func (p *Pipeline) RunFull(retrain bool) *models.PipelineReport {
	start := time.Now()
	report := &models.PipelineReport{RunID: uuid.NewString()}
	defer func() {
		report.TotalSeconds = time.Since(start).Seconds()
	}()

	if retrain || !p.model.IsFitted() {
		log.Printf("[DetectionPipeline] Training anomaly detection model (run %s)", report.RunID)

		points, err := p.flights.AllPoints()
		if err != nil {
			report.Error = fmt.Sprintf("failed to load training data: %v", err)
			return report
		}

		training, err := p.model.Train(points)
		if err != nil {
			report.Error = fmt.Sprintf("model training failed: %v", err)
			return report
		}
		report.Training = training
	}

	flightIDs, err := p.flights.DistinctFlightIDs()
	if err != nil {
		report.Error = fmt.Sprintf("failed to enumerate flights: %v", err)
		return report
	}
	if len(flightIDs) == 0 {
		report.Error = "no flights available for processing"
		return report
	}

	for i := 0; i < len(flightIDs); i += p.batchSize {
		end := i + p.batchSize
		if end > len(flightIDs) {
			end = len(flightIDs)
		}

		batch := p.processBatch(flightIDs[i:end], report.RunID)
		report.FlightsProcessed += batch.ProcessedFlights
		report.AnomaliesDetected += batch.AnomaliesDetected
		report.RecordsCreated += batch.RecordsCreated

		if len(batch.Errors) > 0 {
			log.Printf("[DetectionPipeline] Batch processing errors: %v", batch.Errors)
			report.Warnings = append(report.Warnings, batch.Errors...)
		}
	}

	report.Success = true
	log.Printf("[DetectionPipeline] Pipeline completed: %d points processed, %d anomalies detected",
		report.FlightsProcessed, report.AnomaliesDetected)

	return report
}
