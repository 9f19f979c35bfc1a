package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/darkthread/internal/dedup"
	"github.com/nao1215/darkthread/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "darkthread.db"

// ThreadDB stores scrape history.
type ThreadDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ThreadDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*ThreadDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
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

	tdb := &ThreadDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := tdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return tdb, nil
}

// Path returns the database file path.
func (tdb *ThreadDB) Path() string {
	return tdb.dbPath
}

// Close closes the database connection.
func (tdb *ThreadDB) Close() error {
	return tdb.db.Close()
}

func (tdb *ThreadDB) createTables() error {
	schema := `
	-- One row per scrape run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		source_url TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		status_code INTEGER,
		content_length INTEGER,
		thread_title TEXT,
		total_posts INTEGER NOT NULL DEFAULT 0,
		unique_users INTEGER NOT NULL DEFAULT 0,
		total_links INTEGER NOT NULL DEFAULT 0,
		total_attachments INTEGER NOT NULL DEFAULT 0,
		posts_with_pii INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source_url);
	CREATE INDEX IF NOT EXISTS idx_runs_fetched ON runs(fetched_at);

	-- Posts seen per thread; a post is stored by the first run that saw it
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		source_url TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		username TEXT,
		posted_at TEXT,
		content_text TEXT,
		reaction_count INTEGER NOT NULL DEFAULT 0,
		pii_json TEXT,
		UNIQUE(source_url, fingerprint)
	);

	CREATE INDEX IF NOT EXISTS idx_posts_run ON posts(run_id);
	CREATE INDEX IF NOT EXISTS idx_posts_username ON posts(username);

	-- PII category totals per run
	CREATE TABLE IF NOT EXISTS pii_totals (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY(run_id, category)
	);
	`

	_, err := tdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveResult reports what SaveRun stored.
type SaveResult struct {
	// ID is the database ID of the new run.
	ID int64

	// NewPosts is the number of posts stored for the first time.
	NewPosts int

	// KnownPosts is the number of posts an earlier run already stored.
	KnownPosts int
}

// SaveRun stores a run with its posts and PII totals in one transaction.
func (tdb *ThreadDB) SaveRun(ctx context.Context, report *model.Report) (SaveResult, error) {
	if report == nil {
		return SaveResult{}, ErrNilReport
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := tdb.db.BeginTx(ctx, nil)
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	meta, summary := report.Metadata, report.Summary
	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (run_id, source_url, fetched_at, generated_at, status_code, content_length,
		thread_title, total_posts, unique_users, total_links, total_attachments, posts_with_pii, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		meta.RunID,
		meta.SourceURL,
		formatTimestamp(meta.FetchedAt),
		formatTimestamp(meta.GeneratedAt),
		meta.StatusCode,
		meta.ContentLength,
		summary.ThreadTitle,
		summary.TotalPosts,
		summary.UniqueUsers,
		summary.TotalLinks,
		summary.TotalAttachments,
		report.PIIAnalysis.PostsWithPII,
		string(reportJSON),
	)
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to insert run: %w", err)
	}

	result := SaveResult{}
	if result.ID, err = res.LastInsertId(); err != nil {
		return SaveResult{}, fmt.Errorf("failed to read run id: %w", err)
	}

	if report.Document != nil {
		for _, p := range report.Document.Posts {
			inserted, err := insertPost(ctx, tx, result.ID, meta.SourceURL, p)
			if err != nil {
				return SaveResult{}, err
			}
			if inserted {
				result.NewPosts++
			} else {
				result.KnownPosts++
			}
		}
	}

	for category, n := range report.PIIAnalysis.PIITypes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pii_totals (run_id, category, count) VALUES (?, ?, ?)`,
			result.ID, category, n,
		); err != nil {
			return SaveResult{}, fmt.Errorf("failed to insert PII totals: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{}, fmt.Errorf("failed to commit run: %w", err)
	}
	return result, nil
}

// PostFingerprint identifies a post across runs by author, time and
// content. The ordinal is left out because it shifts as threads grow.
func PostFingerprint(p model.Post) string {
	fp := dedup.Fingerprint(struct {
		Username    string `json:"username"`
		PostedAt    string `json:"postedAt"`
		ContentText string `json:"contentText"`
	}{p.Username, p.PostedAt, p.ContentText})
	return strconv.FormatUint(fp, 16)
}

func insertPost(ctx context.Context, tx *sql.Tx, runID int64, sourceURL string, p model.Post) (bool, error) {
	var piiJSON sql.NullString
	if p.HasPII() {
		data, err := json.Marshal(p.PIIFindings)
		if err != nil {
			return false, fmt.Errorf("failed to serialize PII findings: %w", err)
		}
		piiJSON = sql.NullString{String: string(data), Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
	INSERT INTO posts (run_id, source_url, fingerprint, ordinal, username, posted_at, content_text, reaction_count, pii_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(source_url, fingerprint) DO NOTHING
	`,
		runID,
		sourceURL,
		PostFingerprint(p),
		p.Ordinal,
		p.Username,
		p.PostedAt,
		p.ContentText,
		p.ReactionCount,
		piiJSON,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert post: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// RunSummary is a run without its full report.
type RunSummary struct {
	ID               int64     `json:"id"`
	RunID            string    `json:"runId"`
	SourceURL        string    `json:"sourceUrl"`
	FetchedAt        time.Time `json:"fetchedAt"`
	StatusCode       int       `json:"statusCode"`
	ContentLength    int       `json:"contentLength"`
	ThreadTitle      string    `json:"threadTitle,omitempty"`
	TotalPosts       int       `json:"totalPosts"`
	UniqueUsers      int       `json:"uniqueUsers"`
	TotalLinks       int       `json:"totalLinks"`
	TotalAttachments int       `json:"totalAttachments"`
	PostsWithPII     int       `json:"postsWithPII"`
}

// ListRuns returns runs newest first. An empty sourceURL lists every run.
func (tdb *ThreadDB) ListRuns(ctx context.Context, sourceURL string) ([]RunSummary, error) {
	query := `
	SELECT id, run_id, source_url, fetched_at, status_code, content_length, thread_title,
		total_posts, unique_users, total_links, total_attachments, posts_with_pii
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 1)
	if sourceURL != "" {
		query += " AND source_url = ?"
		args = append(args, sourceURL)
	}
	query += " ORDER BY fetched_at DESC, id DESC"

	rows, err := tdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r         RunSummary
			fetchedAt string
			title     sql.NullString
		)
		if err := rows.Scan(
			&r.ID,
			&r.RunID,
			&r.SourceURL,
			&fetchedAt,
			&r.StatusCode,
			&r.ContentLength,
			&title,
			&r.TotalPosts,
			&r.UniqueUsers,
			&r.TotalLinks,
			&r.TotalAttachments,
			&r.PostsWithPII,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.FetchedAt = parseTimestamp(fetchedAt)
		r.ThreadTitle = title.String
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// SourceSummary describes one scraped thread URL.
type SourceSummary struct {
	SourceURL   string    `json:"sourceUrl"`
	Runs        int       `json:"runs"`
	LastFetched time.Time `json:"lastFetched"`
	StoredPosts int       `json:"storedPosts"`
}

// ListSources returns every scraped URL in name order.
func (tdb *ThreadDB) ListSources(ctx context.Context) ([]SourceSummary, error) {
	query := `
	SELECT r.source_url, COUNT(*), MAX(r.fetched_at),
		(SELECT COUNT(*) FROM posts p WHERE p.source_url = r.source_url)
	FROM runs r
	GROUP BY r.source_url
	ORDER BY r.source_url
	`

	rows, err := tdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceSummary
	for rows.Next() {
		var (
			s    SourceSummary
			last string
		)
		if err := rows.Scan(&s.SourceURL, &s.Runs, &last, &s.StoredPosts); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		s.LastFetched = parseTimestamp(last)
		sources = append(sources, s)
	}

	return sources, rows.Err()
}

// GetRunReport returns the full report stored for the run with the given
// database ID.
func (tdb *ThreadDB) GetRunReport(ctx context.Context, id int64) (*model.Report, error) {
	var reportJSON string
	err := tdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// PIITotals sums the PII category counts over all runs of sourceURL, or
// over every run when sourceURL is empty.
func (tdb *ThreadDB) PIITotals(ctx context.Context, sourceURL string) (map[string]int, error) {
	query := `
	SELECT t.category, SUM(t.count)
	FROM pii_totals t JOIN runs r ON r.id = t.run_id
	WHERE 1=1
	`
	args := make([]any, 0, 1)
	if sourceURL != "" {
		query += " AND r.source_url = ?"
		args = append(args, sourceURL)
	}
	query += " GROUP BY t.category"

	rows, err := tdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum PII totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("failed to scan PII total: %w", err)
		}
		totals[category] = n
	}
	return totals, rows.Err()
}

// timestampLayout sorts lexically in time order for UTC values.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats are tried in order by parseTimestamp.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
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
