package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Schema migrations are embedded so a fresh database bootstraps itself; the
// migrations table records what has been applied.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_flight_points",
		SQL: `
			CREATE TABLE IF NOT EXISTS flight_points (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				flight_id TEXT NOT NULL,
				aircraft_id TEXT NOT NULL,
				timestamp INTEGER NOT NULL,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				altitude INTEGER NOT NULL,
				speed REAL NOT NULL,
				heading REAL NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_flight_points_flight_ts
				ON flight_points (flight_id, timestamp);
		`,
	},
	{
		Version: 2,
		Name:    "create_anomaly_detections",
		SQL: `
			CREATE TABLE IF NOT EXISTS anomaly_detections (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				flight_point_id INTEGER NOT NULL REFERENCES flight_points(id) ON DELETE CASCADE,
				flight_id TEXT NOT NULL,
				anomaly_type TEXT NOT NULL,
				confidence_score REAL NOT NULL,
				model_version TEXT NOT NULL,
				run_id TEXT NOT NULL,
				detected_at INTEGER NOT NULL,
				details_json TEXT,
				dedupe_key TEXT NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_anomaly_dedupe
				ON anomaly_detections (dedupe_key);
			CREATE INDEX IF NOT EXISTS idx_anomaly_confidence
				ON anomaly_detections (confidence_score);
		`,
	},
}

// RunMigrations applies all pending migrations
func RunMigrations(db *sql.DB) error {
	if err := initMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}
		if err := applyMigration(db, migration); err != nil {
			return err
		}
	}

	return nil
}

func initMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func appliedMigrations(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, nil
}

func applyMigration(db *sql.DB, migration Migration) error {
	return Transaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(migration.SQL); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)",
			migration.Version, migration.Name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		log.Printf("[Database] Applied migration %d: %s", migration.Version, migration.Name)
		return nil
	})
}
