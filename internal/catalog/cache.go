package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mgaultier/dumpstats/internal/stats"
)

// Cache is the local sqlite store for resolved dataset metadata and run
// reports.
type Cache struct {
	conn *sql.DB
	path string
	ttl  time.Duration
}

// OpenCache creates or opens the cache database at the given path. Entries
// older than ttl are treated as missing; ttl <= 0 disables expiry.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating cache schema: %w", err)
	}

	return &Cache{conn: conn, path: path, ttl: ttl}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Path returns the cache database file path.
func (c *Cache) Path() string {
	return c.path
}

// Get returns fresh cached metadata for a dataset, or ok=false when the id
// is unknown or the entry has expired.
func (c *Cache) Get(datasetID string) (*stats.Metadata, bool) {
	row := c.conn.QueryRow(
		`SELECT id, title, slug, organization, organization_id, url, fetched_at
		FROM datasets WHERE id = ?`, datasetID,
	)

	var m stats.Metadata
	var fetchedAt string
	if err := row.Scan(&m.ID, &m.Title, &m.Slug, &m.Organization, &m.OrganizationID, &m.URL, &fetchedAt); err != nil {
		return nil, false
	}

	if c.ttl > 0 {
		t, err := time.Parse(time.RFC3339, fetchedAt)
		if err != nil || time.Since(t) > c.ttl {
			return nil, false
		}
	}
	return &m, true
}

// Put inserts or refreshes cached metadata for a dataset.
func (c *Cache) Put(m stats.Metadata) error {
	_, err := c.conn.Exec(
		`INSERT OR REPLACE INTO datasets
		(id, title, slug, organization, organization_id, url, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Title, m.Slug, m.Organization, m.OrganizationID, m.URL,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Count returns the number of cached metadata entries, fresh or stale.
func (c *Cache) Count() (int, error) {
	var n int
	err := c.conn.QueryRow("SELECT COUNT(*) FROM datasets").Scan(&n)
	return n, err
}

// RunReport records the outcome of one pipeline run.
type RunReport struct {
	ID             int64
	RanAt          string
	VisitRows      int64
	VisitErrors    int64
	DownloadRows   int64
	DownloadErrors int64
	Datasets       int
	RankedDatasets int
	DurationSecs   float64
	DryRun         bool
}

// RecordRun appends a run report.
func (c *Cache) RecordRun(r RunReport) error {
	_, err := c.conn.Exec(
		`INSERT INTO run_reports
		(ran_at, visit_rows, visit_errors, download_rows, download_errors,
		 datasets, ranked_datasets, duration_secs, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		r.VisitRows, r.VisitErrors, r.DownloadRows, r.DownloadErrors,
		r.Datasets, r.RankedDatasets, r.DurationSecs, boolToInt(r.DryRun),
	)
	return err
}

// LastRun returns the most recent run report, or nil when no run has been
// recorded yet.
func (c *Cache) LastRun() (*RunReport, error) {
	row := c.conn.QueryRow(
		`SELECT id, ran_at, visit_rows, visit_errors, download_rows, download_errors,
		 datasets, ranked_datasets, duration_secs, dry_run
		FROM run_reports ORDER BY id DESC LIMIT 1`,
	)

	var r RunReport
	var dry int
	err := row.Scan(&r.ID, &r.RanAt, &r.VisitRows, &r.VisitErrors,
		&r.DownloadRows, &r.DownloadErrors, &r.Datasets, &r.RankedDatasets,
		&r.DurationSecs, &dry)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.DryRun = dry != 0
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
