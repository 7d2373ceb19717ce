package models

import "time"

// AnomalyType constants for classified anomaly records
const (
	AnomalyRouteDeviation = "route_deviation"
	AnomalySpeed          = "speed_anomaly"
	AnomalyAltitude       = "altitude_anomaly"
	AnomalyTemporal       = "temporal_anomaly"
	AnomalyCombined       = "combined"
)

// AnomalyRecord represents one anomaly detection result for a flight point
type AnomalyRecord struct {
	ID              int64     `json:"id" db:"id"`
	FlightPointID   int64     `json:"flightPointId" db:"flight_point_id"`
	FlightID        string    `json:"flightId" db:"flight_id"`
	AnomalyType     string    `json:"anomalyType" db:"anomaly_type"`
	ConfidenceScore float64   `json:"confidenceScore" db:"confidence_score"` // [0, 1]
	ModelVersion    string    `json:"modelVersion" db:"model_version"`
	RunID           string    `json:"runId" db:"run_id"`
	DetectedAt      time.Time `json:"detectedAt" db:"detected_at"`
	DetailsJSON     string    `json:"details,omitempty" db:"details_json"`

	// DedupeKey is the natural key <flight_point_id>:<model_version>.
	// A UNIQUE index on it makes cross-run idempotence explicit: re-running
	// detection with the same model skips instead of duplicating.
	DedupeKey string `json:"-" db:"dedupe_key"`
}

// IngestOutcome constants
const (
	IngestCreated = "created"
	IngestSkipped = "skipped"
	IngestFailed  = "failed"
)

// IngestResult is the per-record outcome of a bulk anomaly write.
// Expected per-row conditions (duplicate keys, single bad rows) surface here
// as values rather than aborting the batch.
type IngestResult struct {
	Record  *AnomalyRecord
	Outcome string
	Err     error
}
