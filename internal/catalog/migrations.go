package catalog

import (
	"database/sql"
	"fmt"
	"log"
)

// migration is a single schema migration step.
type migration struct {
	version     int
	description string
	up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing version numbers.
var migrations = []migration{
	{
		version:     1,
		description: "initial schema",
		up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS datasets (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    slug TEXT,
    organization TEXT,
    organization_id TEXT,
    url TEXT,
    fetched_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ran_at TEXT NOT NULL,
    visit_rows INTEGER DEFAULT 0,
    visit_errors INTEGER DEFAULT 0,
    download_rows INTEGER DEFAULT 0,
    download_errors INTEGER DEFAULT 0,
    datasets INTEGER DEFAULT 0,
    ranked_datasets INTEGER DEFAULT 0,
    duration_secs REAL DEFAULT 0,
    dry_run INTEGER DEFAULT 0
);
`)
			return err
		},
	},
}

func latestVersion() int {
	return migrations[len(migrations)-1].version
}

// migrate brings the cache schema up to the latest version, tracked via
// PRAGMA user_version.
func migrate(conn *sql.DB) error {
	var current int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if current >= latestVersion() {
		return nil
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		log.Printf("applying cache migration %d: %s", m.version, m.description)

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}

		if err := m.up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}

		// Set user_version outside the transaction (modernc/sqlite
		// requirement). Safe: the idempotent DDL lets a migration re-run.
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("setting version %d: %w", m.version, err)
		}
	}

	return nil
}
