package storage

import "fmt"

// migrate creates the catalog schema if it doesn't exist.
func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	db.logger.Debug("database migrations applied")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS lines (
		line_id        TEXT PRIMARY KEY,
		color          TEXT NOT NULL,
		north_terminal TEXT NOT NULL DEFAULT '',
		south_terminal TEXT NOT NULL DEFAULT '',
		express        INTEGER NOT NULL DEFAULT 0,
		feed           TEXT NOT NULL DEFAULT 'gtfs'
	)`,

	`CREATE TABLE IF NOT EXISTS stations (
		station_id TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		sort_order INTEGER NOT NULL
	)`,

	// Lines keep the station's display order.
	`CREATE TABLE IF NOT EXISTS station_lines (
		station_id TEXT NOT NULL REFERENCES stations(station_id) ON DELETE CASCADE,
		line_id    TEXT NOT NULL,
		position   INTEGER NOT NULL,
		PRIMARY KEY (station_id, line_id)
	)`,

	`CREATE TABLE IF NOT EXISTS catalog_metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_station_lines_position ON station_lines(station_id, position)`,
}
