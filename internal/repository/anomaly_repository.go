package repository

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/skywatch/flights-backend-go/internal/models"
)

// AnomalyRepository handles database operations for anomaly records
type AnomalyRepository struct {
	db *sql.DB
}

// NewAnomalyRepository creates a new anomaly repository
func NewAnomalyRepository(db *sql.DB) *AnomalyRepository {
	return &AnomalyRepository{db: db}
}

// BulkCreate persists anomaly records in one transaction and returns a
// per-record outcome. Dedupe-key collisions become Skipped and individual
// insert failures become Failed; neither aborts the remaining records.
func (r *AnomalyRepository) BulkCreate(records []*models.AnomalyRecord) []models.IngestResult {
	results := make([]models.IngestResult, 0, len(records))
	if len(records) == 0 {
		return results
	}

	tx, err := r.db.Begin()
	if err != nil {
		for _, rec := range records {
			results = append(results, models.IngestResult{
				Record:  rec,
				Outcome: models.IngestFailed,
				Err:     fmt.Errorf("failed to begin transaction: %w", err),
			})
		}
		return results
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO anomaly_detections
			(flight_point_id, flight_id, anomaly_type, confidence_score, model_version, run_id, detected_at, details_json, dedupe_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		for _, rec := range records {
			results = append(results, models.IngestResult{
				Record:  rec,
				Outcome: models.IngestFailed,
				Err:     fmt.Errorf("failed to prepare statement: %w", err),
			})
		}
		return results
	}
	defer stmt.Close()

	for _, rec := range records {
		res, err := stmt.Exec(rec.FlightPointID, rec.FlightID, rec.AnomalyType,
			rec.ConfidenceScore, rec.ModelVersion, rec.RunID,
			rec.DetectedAt.Unix(), rec.DetailsJSON, rec.DedupeKey)
		if err != nil {
			results = append(results, models.IngestResult{
				Record:  rec,
				Outcome: models.IngestFailed,
				Err:     err,
			})
			continue
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			results = append(results, models.IngestResult{Record: rec, Outcome: models.IngestSkipped})
			continue
		}

		if id, err := res.LastInsertId(); err == nil {
			rec.ID = id
		}
		results = append(results, models.IngestResult{Record: rec, Outcome: models.IngestCreated})
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[AnomalyRepository] Failed to commit bulk create: %v", err)
		for i := range results {
			results[i].Outcome = models.IngestFailed
			results[i].Err = fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	return results
}

// TopByConfidence retrieves the highest-confidence anomalies at or above the
// given floor, for downstream reporting
func (r *AnomalyRepository) TopByConfidence(minConfidence float64, limit int) ([]models.AnomalyRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, flight_point_id, flight_id, anomaly_type, confidence_score,
		       model_version, run_id, detected_at, details_json, dedupe_key
		FROM anomaly_detections
		WHERE confidence_score >= ?
		ORDER BY confidence_score DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var records []models.AnomalyRecord
	for rows.Next() {
		var rec models.AnomalyRecord
		var detectedAt int64
		var details sql.NullString
		err := rows.Scan(&rec.ID, &rec.FlightPointID, &rec.FlightID, &rec.AnomalyType,
			&rec.ConfidenceScore, &rec.ModelVersion, &rec.RunID, &detectedAt, &details, &rec.DedupeKey)
		if err != nil {
			return nil, fmt.Errorf("failed to scan anomaly record: %w", err)
		}
		rec.DetectedAt = time.Unix(detectedAt, 0).UTC()
		rec.DetailsJSON = details.String
		records = append(records, rec)
	}

	return records, nil
}

// CountAll counts all anomaly records
func (r *AnomalyRepository) CountAll() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM anomaly_detections").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count anomaly records: %w", err)
	}
	return count, nil
}

// DeleteAll removes every anomaly record and returns the number deleted
func (r *AnomalyRepository) DeleteAll() (int64, error) {
	res, err := r.db.Exec("DELETE FROM anomaly_detections")
	if err != nil {
		return 0, fmt.Errorf("failed to delete anomaly records: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}
