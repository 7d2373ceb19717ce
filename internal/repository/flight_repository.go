package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/skywatch/flights-backend-go/internal/models"
)

const flightPointColumns = "id, flight_id, aircraft_id, timestamp, latitude, longitude, altitude, speed, heading"

// FlightRepository handles database operations for flight points
type FlightRepository struct {
	db *sql.DB
}

// NewFlightRepository creates a new flight repository
func NewFlightRepository(db *sql.DB) *FlightRepository {
	return &FlightRepository{db: db}
}

// CreateBatch inserts flight points in one transaction
func (r *FlightRepository) CreateBatch(points []models.FlightPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT INTO flight_points (flight_id, aircraft_id, timestamp, latitude, longitude, altitude, speed, heading)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		_, err := stmt.Exec(p.FlightID, p.AircraftID, p.Timestamp.Unix(),
			p.Latitude, p.Longitude, p.Altitude, p.Speed, p.Heading)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert flight point for %s: %w", p.FlightID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// PointsByFlightIDs retrieves all points for the given flights, ordered by
// (flight_id, timestamp) for sequence analysis
func (r *FlightRepository) PointsByFlightIDs(flightIDs []string) ([]models.FlightPoint, error) {
	if len(flightIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(flightIDs))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`
		SELECT %s FROM flight_points
		WHERE flight_id IN (%s)
		ORDER BY flight_id, timestamp
	`, flightPointColumns, placeholders)

	args := make([]interface{}, len(flightIDs))
	for i, id := range flightIDs {
		args[i] = id
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight points: %w", err)
	}
	defer rows.Close()

	return scanFlightPoints(rows)
}

// AllPoints retrieves every flight point ordered by (flight_id, timestamp)
func (r *FlightRepository) AllPoints() ([]models.FlightPoint, error) {
	query := fmt.Sprintf("SELECT %s FROM flight_points ORDER BY flight_id, timestamp", flightPointColumns)

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight points: %w", err)
	}
	defer rows.Close()

	return scanFlightPoints(rows)
}

// DistinctFlightIDs retrieves all distinct flight identifiers
func (r *FlightRepository) DistinctFlightIDs() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT flight_id FROM flight_points ORDER BY flight_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query flight IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan flight ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// CountPoints counts the total number of flight points
func (r *FlightRepository) CountPoints() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM flight_points").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count flight points: %w", err)
	}
	return count, nil
}

func scanFlightPoints(rows *sql.Rows) ([]models.FlightPoint, error) {
	var points []models.FlightPoint
	for rows.Next() {
		var p models.FlightPoint
		var ts int64
		err := rows.Scan(&p.ID, &p.FlightID, &p.AircraftID, &ts,
			&p.Latitude, &p.Longitude, &p.Altitude, &p.Speed, &p.Heading)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight point: %w", err)
		}
		p.Timestamp = time.Unix(ts, 0).UTC()
		points = append(points, p)
	}
	return points, nil
}
