package report

import (
	"database/sql"
	"fmt"
	"time"

	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"

	"crawl-core/pkg/models"
	"crawl-core/pkg/utils"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    generated_at DATETIME NOT NULL,
    unique_pages INTEGER NOT NULL,
    visited_urls INTEGER NOT NULL,
    longest_url TEXT,
    longest_words INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS subdomains (
    run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    subdomain TEXT NOT NULL,
    pages INTEGER NOT NULL,
    PRIMARY KEY (run_id, subdomain)
);

CREATE TABLE IF NOT EXISTS word_frequencies (
    run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    rank INTEGER NOT NULL,
    word TEXT NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (run_id, word)
);

CREATE TABLE IF NOT EXISTS rejections (
    run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    reason TEXT NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (run_id, reason)
);
`

// SQLiteExporter stores reports in a SQLite database, one row set per run
type SQLiteExporter struct {
	db *sql.DB
}

// NewSQLiteExporter opens (or creates) the database at dbPath
func NewSQLiteExporter(dbPath string) (*SQLiteExporter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", utils.ErrReportWrite, err)
	}

	// Single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	exporter := &SQLiteExporter{db: db}
	if err := exporter.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %w", utils.ErrReportWrite, err)
	}
	return exporter, nil
}

func (s *SQLiteExporter) initSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000", // 30 second timeout for locks
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Export writes r in one transaction. Re-exporting a run ID replaces it.
func (s *SQLiteExporter) Export(r models.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", utils.ErrReportWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM runs WHERE run_id = ?`, r.RunID); err != nil {
		return fmt.Errorf("%w: clearing run %s: %w", utils.ErrReportWrite, r.RunID, err)
	}

	generatedAt := r.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO runs (run_id, generated_at, unique_pages, visited_urls, longest_url, longest_words)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.RunID, generatedAt, r.UniquePages, r.VisitedURLs, r.LongestPage.URL, r.LongestPage.WordCount)
	if err != nil {
		return fmt.Errorf("%w: inserting run %s: %w", utils.ErrReportWrite, r.RunID, err)
	}

	for _, sc := range r.Subdomains {
		if _, err := tx.Exec(`INSERT INTO subdomains (run_id, subdomain, pages) VALUES (?, ?, ?)`,
			r.RunID, sc.Subdomain, sc.Pages); err != nil {
			return fmt.Errorf("%w: inserting subdomain %s: %w", utils.ErrReportWrite, sc.Subdomain, err)
		}
	}

	for i, wc := range r.TopWords {
		if _, err := tx.Exec(`INSERT INTO word_frequencies (run_id, rank, word, count) VALUES (?, ?, ?, ?)`,
			r.RunID, i+1, wc.Word, wc.Count); err != nil {
			return fmt.Errorf("%w: inserting word %s: %w", utils.ErrReportWrite, wc.Word, err)
		}
	}

	for reason, count := range r.Rejections {
		if _, err := tx.Exec(`INSERT INTO rejections (run_id, reason, count) VALUES (?, ?, ?)`,
			r.RunID, reason, count); err != nil {
			return fmt.Errorf("%w: inserting rejection %s: %w", utils.ErrReportWrite, reason, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", utils.ErrReportWrite, err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteExporter) Close() error {
	return s.db.Close()
}
