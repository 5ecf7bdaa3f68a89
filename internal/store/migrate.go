package store

import (
	"database/sql"
	"fmt"
)

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 rebuilds legacy single-timestamp tables into the start/end shape.
// Fresh databases already have the v1 columns from schema.sql and are left alone.
// Legacy rows get start_time = end_time = timestamp and zero presence.
func migrateToV1(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v1: begin tx: %w", err)
	}
	defer tx.Rollback()

	legacyInterval, err := hasColumn(tx, "interval", "timestamp")
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	if legacyInterval {
		stmts := []string{
			`ALTER TABLE interval RENAME TO interval_legacy`,
			`CREATE TABLE interval (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL,
				blink_count INTEGER NOT NULL CHECK (blink_count >= 0),
				presence_duration INTEGER NOT NULL DEFAULT 0
			)`,
			`INSERT INTO interval (id, start_time, end_time, blink_count, presence_duration)
				SELECT id, timestamp, timestamp, MAX(blink_count, 0), 0 FROM interval_legacy`,
			`DROP TABLE interval_legacy`,
		}
		if err := execAll(tx, stmts); err != nil {
			return fmt.Errorf("migrate to v1: interval: %w", err)
		}
	}

	legacyAvg, err := hasColumn(tx, "avg", "timestamp")
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	if legacyAvg {
		stmts := []string{
			`ALTER TABLE avg RENAME TO avg_legacy`,
			`CREATE TABLE avg (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL,
				avg_value INTEGER NOT NULL,
				sample_count INTEGER NOT NULL DEFAULT 0
			)`,
			`INSERT INTO avg (id, start_time, end_time, avg_value, sample_count)
				SELECT id, timestamp, timestamp, avg_value, 0 FROM avg_legacy`,
			`DROP TABLE avg_legacy`,
		}
		if err := execAll(tx, stmts); err != nil {
			return fmt.Errorf("migrate to v1: avg: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate to v1: commit: %w", err)
	}
	return nil
}

func execAll(tx *sql.Tx, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// hasColumn reports whether table has a column with the given name.
func hasColumn(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scan table_info %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
