// Package jobs persists teaser-generation requests in SQLite.
package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("job not found")

// ErrNoPending is returned by ClaimNext when the queue is empty.
var ErrNoPending = errors.New("no pending jobs")

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database at dir/jobs.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	dbPath := filepath.Join(dir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) applySchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id               TEXT PRIMARY KEY,
    source           TEXT NOT NULL,
    status           TEXT NOT NULL,
    tone             TEXT NOT NULL,
    duration_sec     INTEGER NOT NULL,
    subtitles        INTEGER NOT NULL DEFAULT 1,
    logo_path        TEXT NOT NULL DEFAULT '',
    tagline          TEXT NOT NULL DEFAULT '',
    music_path       TEXT NOT NULL DEFAULT '',
    progress_stage   TEXT NOT NULL DEFAULT '',
    progress_percent REAL NOT NULL DEFAULT 0,
    progress_message TEXT NOT NULL DEFAULT '',
    error_message    TEXT NOT NULL DEFAULT '',
    teaser_path      TEXT NOT NULL DEFAULT '',
    caption          TEXT NOT NULL DEFAULT '',
    out_dir          TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status, created_at);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Enqueue inserts a new pending job.
func (s *Store) Enqueue(ctx context.Context, source string, prefs types.Preferences) (*Job, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (
            id, source, status, tone, duration_sec, subtitles,
            logo_path, tagline, music_path, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		source,
		StatusPending,
		string(prefs.Tone),
		int(prefs.Duration.Seconds()),
		boolInt(prefs.Subtitles),
		prefs.Branding.LogoPath,
		prefs.Branding.Tagline,
		prefs.MusicPath,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, id)
}

// ClaimNext atomically moves the oldest pending job to running and returns
// it. Returns ErrNoPending when the queue is empty.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1`,
		StatusPending,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, fmt.Errorf("select pending: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusRunning, now, id, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNoPending
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return s.Get(ctx, id)
}

// UpdateProgress records stage progress for a running job.
func (s *Store) UpdateProgress(ctx context.Context, id, stage string, pct float64, msg string) error {
	return s.update(ctx, id,
		`UPDATE jobs SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		stage, pct, msg, nowUTC(), id)
}

// Complete marks a running job finished and records its artifacts.
func (s *Store) Complete(ctx context.Context, id, teaserPath, caption, outDir string) error {
	return s.finishRunning(ctx, id,
		`UPDATE jobs SET status = ?, progress_percent = 100, teaser_path = ?, caption = ?, out_dir = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusCompleted, teaserPath, caption, outDir, nowUTC(), id, StatusRunning)
}

// Fail marks a running job failed with the given message.
func (s *Store) Fail(ctx context.Context, id, msg string) error {
	return s.finishRunning(ctx, id,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusFailed, msg, nowUTC(), id, StatusRunning)
}

// Cancel marks a non-terminal job cancelled.
func (s *Store) Cancel(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status IN (?, ?)`,
		StatusCancelled, nowUTC(), id, StatusPending, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("job %s is already finished", id)
	}
	return nil
}

// Delete removes a job row.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the job with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

// List returns all jobs, newest first.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ResetStuck returns running jobs to pending. Called once at startup so jobs
// orphaned by a crash get retried.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, progress_stage = '', progress_percent = 0, updated_at = ? WHERE status = ?`,
		StatusPending, nowUTC(), StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

const selectColumns = `SELECT
    id, source, status, tone, duration_sec, subtitles,
    logo_path, tagline, music_path,
    progress_stage, progress_percent, progress_message,
    error_message, teaser_path, caption, out_dir,
    created_at, updated_at
FROM jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		j         Job
		tone      string
		status    string
		subtitles int
		created   string
		updated   string
	)
	err := row.Scan(
		&j.ID, &j.Source, &status, &tone, &j.DurationSec, &subtitles,
		&j.LogoPath, &j.Tagline, &j.MusicPath,
		&j.ProgressStage, &j.ProgressPercent, &j.ProgressMessage,
		&j.ErrorMessage, &j.TeaserPath, &j.Caption, &j.OutDir,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}
	j.Status = Status(status)
	j.Tone = types.Tone(tone)
	j.Subtitles = subtitles != 0
	if t, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
		j.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339Nano, updated); parseErr == nil {
		j.UpdatedAt = t
	}
	return &j, nil
}

// finishRunning applies a terminal transition only while the job is still
// running. Zero affected rows on an existing job means another path finished
// it first, typically a cancellation racing the worker; the earlier terminal
// status wins and the update is a no-op.
func (s *Store) finishRunning(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

func (s *Store) update(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
