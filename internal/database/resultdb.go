package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/microcrawl/internal/model"
)

// FileName is the database file name inside the data directory.
const FileName = "microcrawl.db"

// ResultDB provides SQLite-based storage for crawl runs.
type ResultDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResultDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ResultDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	// The pragma is applied to every new connection.
	dsn := dbPath + "?mode=rw&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer; batch crawls share this handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *ResultDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ResultDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		pattern_name TEXT NOT NULL,
		pattern_source TEXT NOT NULL,
		max_requests INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		requests_issued INTEGER NOT NULL DEFAULT 0,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		fetch_failures INTEGER NOT NULL DEFAULT 0,
		unique_matches INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Every fetch of a run
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		status_code INTEGER,
		title TEXT,
		content_hash TEXT,
		size INTEGER,
		links INTEGER,
		matches INTEGER,
		error TEXT,
		fetched_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);

	-- Distinct values found by a run
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		value TEXT NOT NULL,
		first_context TEXT,
		context_count INTEGER NOT NULL,
		UNIQUE(run_id, value)
	);

	CREATE INDEX IF NOT EXISTS idx_matches_value ON matches(value);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport stores a finished crawl and sets report.ID.
// The run, its pages and its values are written in one transaction.
func (rdb *ResultDB) SaveReport(ctx context.Context, report *model.CrawlReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (seed, pattern_name, pattern_source, max_requests, started_at, finished_at,
		requests_issued, pages_fetched, fetch_failures, unique_matches, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Seed,
		report.PatternName,
		report.PatternSource,
		report.MaxRequests,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.Stats.RequestsIssued,
		report.Stats.PagesFetched,
		report.Stats.FetchFailures,
		report.Stats.UniqueMatches,
		nullString(report.Error),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, v := range report.Visits {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO pages (run_id, url, depth, status_code, title, content_hash, size, links, matches, error, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, v.URL, v.Depth, v.StatusCode, v.Title, v.Hash, v.Size, v.Links, v.Matches,
			nullString(v.Error), formatTimestamp(v.FetchedAt)); err != nil {
			return 0, fmt.Errorf("failed to save page %s: %w", v.URL, err)
		}
	}

	for _, m := range report.Matches {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO matches (run_id, value, first_context, context_count)
		VALUES (?, ?, ?, ?)
		`, id, m.Value, m.FirstContext(), len(m.Contexts)); err != nil {
			return 0, fmt.Errorf("failed to save match: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	report.ID = id
	return id, nil
}

// GetReport retrieves a stored run by its database ID.
func (rdb *ResultDB) GetReport(ctx context.Context, id int64) (*model.CrawlReport, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeReport(id, reportJSON)
}

// LatestReport retrieves the most recent run for a seed.
func (rdb *ResultDB) LatestReport(ctx context.Context, seed string) (*model.CrawlReport, error) {
	var (
		id         int64
		reportJSON string
	)
	err := rdb.db.QueryRowContext(ctx, `
	SELECT id, report_json FROM runs
	WHERE seed = ?
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`, seed).Scan(&id, &reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: seed %s", ErrRunNotFound, seed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeReport(id, reportJSON)
}

func decodeReport(id int64, reportJSON string) (*model.CrawlReport, error) {
	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	report.ID = id
	return &report, nil
}

// RunMetadata contains summary information about a stored run.
// It is used for listing history without loading full reports.
type RunMetadata struct {
	ID             int64
	Seed           string
	PatternName    string
	StartedAt      time.Time
	FinishedAt     time.Time
	RequestsIssued int
	FetchFailures  int
	UniqueMatches  int
	Error          string
}

// ListRuns returns run metadata, newest first. An empty seed lists the runs
// of every seed.
func (rdb *ResultDB) ListRuns(ctx context.Context, seed string) ([]RunMetadata, error) {
	query := `
	SELECT id, seed, pattern_name, started_at, finished_at, requests_issued, fetch_failures, unique_matches, error
	FROM runs
	WHERE (? = '' OR seed = ?)
	ORDER BY started_at DESC, id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, seed, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	results := make([]RunMetadata, 0)
	for rows.Next() {
		var (
			meta                RunMetadata
			started             string
			finished, errString sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Seed, &meta.PatternName, &started, &finished,
			&meta.RequestsIssued, &meta.FetchFailures, &meta.UniqueMatches, &errString); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished.String)
		meta.Error = errString.String
		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListSeeds returns every seed with at least one stored run, sorted.
func (rdb *ResultDB) ListSeeds(ctx context.Context) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx, `SELECT DISTINCT seed FROM runs ORDER BY seed`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	seeds := make([]string, 0)
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, rows.Err()
}

// Sighting is one run in which a value was found.
type Sighting struct {
	RunID        int64
	Seed         string
	StartedAt    time.Time
	FirstContext string
	ContextCount int
}

// FindValue returns every run that found value, newest first.
func (rdb *ResultDB) FindValue(ctx context.Context, value string) ([]Sighting, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT r.id, r.seed, r.started_at, m.first_context, m.context_count
	FROM matches m
	JOIN runs r ON r.id = m.run_id
	WHERE m.value = ?
	ORDER BY r.started_at DESC, r.id DESC
	`, value)
	if err != nil {
		return nil, fmt.Errorf("failed to find value: %w", err)
	}
	defer rows.Close()

	sightings := make([]Sighting, 0)
	for rows.Next() {
		var (
			s       Sighting
			started string
			first   sql.NullString
		)
		if err := rows.Scan(&s.RunID, &s.Seed, &started, &first, &s.ContextCount); err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		s.StartedAt = parseTimestamp(started)
		s.FirstContext = first.String
		sightings = append(sightings, s)
	}
	return sightings, rows.Err()
}

// DeleteRun removes a run together with its pages and values.
func (rdb *ResultDB) DeleteRun(ctx context.Context, id int64) error {
	res, err := rdb.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrRunNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// formatTimestamp stores times in UTC with a fixed width so that text
// ordering matches time ordering.
func formatTimestamp(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(storedTimeFormat), Valid: true}
}

// storedTimeFormat is RFC 3339 with fixed nanoseconds.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
