package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"subwaypulse/internal/catalog"
)

// GetMetadata retrieves a value from the catalog_metadata table.
func (db *DB) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM catalog_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// setMetadata stores a key-value pair through ex, which is the DB or an open
// transaction.
func setMetadata(ctx context.Context, ex execer, key, value string) error {
	_, err := ex.ExecContext(ctx,
		`INSERT OR REPLACE INTO catalog_metadata (key, value) VALUES (?, ?)`,
		key, value)
	return err
}

// HasCatalog reports whether any stations have been stored.
func (db *DB) HasCatalog(ctx context.Context) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stations`).Scan(&n); err != nil {
		return false, fmt.Errorf("count stations: %w", err)
	}
	return n > 0, nil
}

// SeedCatalog replaces the stored catalog with the given stations and lines.
func (db *DB) SeedCatalog(ctx context.Context, stations []catalog.Station, lines []catalog.Line) error {
	start := time.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"station_lines", "stations", "lines"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertLines(ctx, tx, lines); err != nil {
		return err
	}
	if err := insertStations(ctx, tx, stations); err != nil {
		return err
	}

	if err := setMetadata(ctx, tx, "seeded_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record seed time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.Info("catalog seeded",
		"stations", len(stations),
		"lines", len(lines),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func insertLines(ctx context.Context, tx *sql.Tx, lines []catalog.Line) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO lines (line_id, color, north_terminal, south_terminal, express, feed)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare lines: %w", err)
	}
	defer stmt.Close()

	for _, l := range lines {
		if _, err := stmt.ExecContext(ctx, string(l.ID), l.Color, l.NorthTerminal, l.SouthTerminal, l.Express, l.Feed); err != nil {
			return fmt.Errorf("insert line %s: %w", l.ID, err)
		}
	}
	return nil
}

func insertStations(ctx context.Context, tx *sql.Tx, stations []catalog.Station) error {
	stStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stations (station_id, name, sort_order) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stations: %w", err)
	}
	defer stStmt.Close()

	lnStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO station_lines (station_id, line_id, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare station_lines: %w", err)
	}
	defer lnStmt.Close()

	for i, s := range stations {
		if _, err := stStmt.ExecContext(ctx, s.ID, s.Name, i); err != nil {
			return fmt.Errorf("insert station %s: %w", s.ID, err)
		}
		for pos, l := range s.Lines {
			if _, err := lnStmt.ExecContext(ctx, s.ID, string(l), pos); err != nil {
				return fmt.Errorf("insert station line %s/%s: %w", s.ID, l, err)
			}
		}
	}
	return nil
}

// Stations returns the stored stations in their original order, each with
// its lines in display order.
func (db *DB) Stations(ctx context.Context) ([]catalog.Station, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.station_id, s.name, sl.line_id
		FROM stations AS s
		LEFT JOIN station_lines AS sl ON sl.station_id = s.station_id
		ORDER BY s.sort_order, sl.position`)
	if err != nil {
		return nil, fmt.Errorf("stations query: %w", err)
	}
	defer rows.Close()

	var stations []catalog.Station
	for rows.Next() {
		var id, name string
		var line sql.NullString
		if err := rows.Scan(&id, &name, &line); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		if n := len(stations); n == 0 || stations[n-1].ID != id {
			stations = append(stations, catalog.Station{ID: id, Name: name})
		}
		if line.Valid {
			last := &stations[len(stations)-1]
			last.Lines = append(last.Lines, catalog.LineID(line.String))
		}
	}
	return stations, rows.Err()
}

// Lines returns the stored line registry entries.
func (db *DB) Lines(ctx context.Context) ([]catalog.Line, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT line_id, color, north_terminal, south_terminal, express, feed
		FROM lines ORDER BY line_id`)
	if err != nil {
		return nil, fmt.Errorf("lines query: %w", err)
	}
	defer rows.Close()

	var lines []catalog.Line
	for rows.Next() {
		var l catalog.Line
		var id string
		if err := rows.Scan(&id, &l.Color, &l.NorthTerminal, &l.SouthTerminal, &l.Express, &l.Feed); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		l.ID = catalog.LineID(id)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// LoadCatalog builds the catalog and line registry from stored rows.
func (db *DB) LoadCatalog(ctx context.Context) (*catalog.Catalog, *catalog.Registry, error) {
	stations, err := db.Stations(ctx)
	if err != nil {
		return nil, nil, err
	}
	lines, err := db.Lines(ctx)
	if err != nil {
		return nil, nil, err
	}
	cat, err := catalog.New(stations)
	if err != nil {
		return nil, nil, fmt.Errorf("stored catalog: %w", err)
	}
	return cat, catalog.NewRegistry(lines), nil
}
