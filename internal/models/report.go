package models

// TrainingReport summarizes a model training run. There is no labeled ground
// truth for flight anomalies, so fit quality is reported as sample/feature
// counts and timing rather than a cross-validated score.
type TrainingReport struct {
	Samples         int      `json:"training_samples"`
	FeatureCount    int      `json:"features_count"`
	FeatureNames    []string `json:"feature_names"`
	Contamination   float64  `json:"contamination"`
	ModelVersion    string   `json:"model_version"`
	TrainingSeconds float64  `json:"training_time_seconds"`
}

// BatchReport summarizes one ProcessBatch call. Errors are collected, not
// raised, so the caller sees the complete picture for the batch.
type BatchReport struct {
	Success           bool     `json:"success"`
	ProcessedFlights  int      `json:"processed_flights"` // flight point records scored
	AnomaliesDetected int      `json:"anomalies_detected"`
	RecordsCreated    int      `json:"anomaly_records_created"`
	RecordsSkipped    int      `json:"anomaly_records_skipped"`
	Errors            []string `json:"errors"`
	ProcessingSeconds float64  `json:"processing_time_seconds"`
}

// PipelineReport summarizes a full pipeline run. Success reflects the
// training stage; detection-stage partial failures land in Warnings.
type PipelineReport struct {
	Success           bool            `json:"success"`
	RunID             string          `json:"run_id"`
	Error             string          `json:"error,omitempty"`
	Training          *TrainingReport `json:"training,omitempty"`
	FlightsProcessed  int             `json:"total_flights_processed"`
	AnomaliesDetected int             `json:"total_anomalies_detected"`
	RecordsCreated    int             `json:"total_records_created"`
	Warnings          []string        `json:"warnings,omitempty"`
	TotalSeconds      float64         `json:"total_processing_time_seconds"`
}
