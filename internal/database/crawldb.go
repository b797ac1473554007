package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/zorah/internal/model"
)

// FileName is the archive's file name inside the data directory.
const FileName = "zorah.db"

// CrawlDB stores finished crawl reports.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when
	// missing. Read-only commands (history, compare) leave it false.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used when archiving.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// ErrDatabaseNotFound is returned by Open when the archive does not
// exist and CreateIfNotExists is false.
var ErrDatabaseNotFound = errors.New("archive database not found")

// Open opens or creates the archive in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		scope_domain TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		blocked INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_scope ON runs(scope_domain);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		status INTEGER NOT NULL,
		type TEXT NOT NULL,
		note TEXT NOT NULL,
		cdn TEXT NOT NULL,
		waf TEXT NOT NULL,
		mixed_signals TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_results_url ON results(url);
	`
	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport archives a finished report and all of its records in one
// transaction.
func (cdb *CrawlDB) SaveReport(ctx context.Context, report *model.CrawlReport) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sum := report.Summary()
	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, seed, scope_domain, started_at, finished_at, interrupted, total, blocked, errors)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID,
		report.Seed,
		report.ScopeDomain,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.Interrupted,
		sum.Total,
		sum.Count(model.ResultTypeBlocked),
		sum.Count(model.ResultTypeError),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO results (run_id, position, url, title, status, type, note, cdn, waf, mixed_signals)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, res := range report.Results {
		_, err = stmt.ExecContext(ctx,
			report.ID,
			i,
			res.URL,
			res.Title,
			int(res.Status),
			res.Type.String(),
			res.Note,
			res.Services.CDN,
			res.Services.WAF,
			strings.Join(res.Services.MixedSignals, ","),
		)
		if err != nil {
			return fmt.Errorf("failed to save result %s: %w", res.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetReportByID loads an archived report with its records in visit
// order. It returns nil, nil when no run has that ID.
func (cdb *CrawlDB) GetReportByID(ctx context.Context, id string) (*model.CrawlReport, error) {
	var (
		report              model.CrawlReport
		startedAt, finished string
	)
	err := cdb.db.QueryRowContext(ctx, `
	SELECT id, seed, scope_domain, started_at, finished_at, interrupted
	FROM runs
	WHERE id = ?
	`, id).Scan(&report.ID, &report.Seed, &report.ScopeDomain, &startedAt, &finished, &report.Interrupted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	report.StartedAt = parseTimestamp(startedAt)
	report.FinishedAt = parseTimestamp(finished)

	results, err := cdb.loadResults(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	report.Results = results
	return &report, nil
}

func (cdb *CrawlDB) loadResults(ctx context.Context, runID string) ([]model.Result, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, title, status, type, note, cdn, waf, mixed_signals
	FROM results
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]model.Result, 0)
	for rows.Next() {
		var (
			res            model.Result
			status         int
			typeName       string
			mixedSignalCSV string
		)
		if err := rows.Scan(&res.URL, &res.Title, &status, &typeName, &res.Note,
			&res.Services.CDN, &res.Services.WAF, &mixedSignalCSV); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		res.Status = model.StatusCode(status)
		res.Type, err = model.ParseResultType(typeName)
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", res.URL, err)
		}
		if mixedSignalCSV != "" {
			res.Services.MixedSignals = strings.Split(mixedSignalCSV, ",")
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// ListScopeDomains returns every archived scope domain, sorted.
func (cdb *CrawlDB) ListScopeDomains(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT DISTINCT scope_domain FROM runs
	ORDER BY scope_domain
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scope domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("failed to scan scope domain: %w", err)
		}
		domains = append(domains, domain)
	}
	return domains, rows.Err()
}

// RunMetadata summarizes an archived run without loading its records.
type RunMetadata struct {
	ID          string
	Seed        string
	ScopeDomain string
	StartedAt   time.Time
	FinishedAt  time.Time
	Interrupted bool
	Total       int
	Blocked     int
	Errors      int
}

// GetHistory lists the runs of a scope domain, newest first.
func (cdb *CrawlDB) GetHistory(ctx context.Context, scopeDomain string) ([]RunMetadata, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT id, seed, scope_domain, started_at, finished_at, interrupted, total, blocked, errors
	FROM runs
	WHERE scope_domain = ?
	ORDER BY started_at DESC
	`, scopeDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var history []RunMetadata
	for rows.Next() {
		var (
			meta                RunMetadata
			startedAt, finished string
		)
		if err := rows.Scan(&meta.ID, &meta.Seed, &meta.ScopeDomain, &startedAt, &finished,
			&meta.Interrupted, &meta.Total, &meta.Blocked, &meta.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.StartedAt = parseTimestamp(startedAt)
		meta.FinishedAt = parseTimestamp(finished)
		history = append(history, meta)
	}
	return history, rows.Err()
}

// GetLatestReports loads up to limit full reports of a scope domain,
// newest first.
func (cdb *CrawlDB) GetLatestReports(ctx context.Context, scopeDomain string, limit int) ([]*model.CrawlReport, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT id FROM runs
	WHERE scope_domain = ?
	ORDER BY started_at DESC
	LIMIT ?
	`, scopeDomain, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest runs: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	// Close before loading: the pool holds a single connection.
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to close rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	reports := make([]*model.CrawlReport, 0, len(ids))
	for _, id := range ids {
		report, err := cdb.GetReportByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if report != nil {
			reports = append(reports, report)
		}
	}
	return reports, nil
}

// timestampLayout is fixed-width so stored values sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats are tried in order when reading timestamps back.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
