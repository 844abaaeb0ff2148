// Package store keeps the history of pipeline runs in SQLite.
package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/contentgate/internal"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy io.Reader
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, entropy: ulid.Monotonic(rand.Reader, 0)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source_hash TEXT NOT NULL,
		source_text TEXT NOT NULL,
		profile TEXT NOT NULL,
		mode TEXT NOT NULL,
		keyword TEXT,
		status TEXT NOT NULL,
		halted_at TEXT,
		reason TEXT,
		output TEXT,
		warnings TEXT,
		duration_ms INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- stage_results holds one row per executed gate, in pipeline order
	CREATE TABLE IF NOT EXISTS stage_results (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		stage TEXT NOT NULL,
		verdict TEXT NOT NULL,
		model TEXT,
		attempts INTEGER,
		findings INTEGER,
		rewrites INTEGER,
		score INTEGER,
		summary TEXT,
		reason TEXT,
		duration_ms INTEGER,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	-- artifacts stores the metadata produced at the end of a run
	CREATE TABLE IF NOT EXISTS artifacts (
		run_id TEXT PRIMARY KEY,
		title TEXT,
		description TEXT,
		schema_json TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source_hash, profile, mode);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_stage_results_run ON stage_results(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

// SaveRun stores rec with its stage results and artifact. It sets
// rec.SourceHash.
func (s *Store) SaveRun(ctx context.Context, rec *internal.RunRecord) error {
	if rec.ID == "" {
		return errors.New("run record has no id")
	}
	rec.SourceHash = SourceHash(rec.Source)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	warnings, err := json.Marshal(rec.Warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source_hash, source_text, profile, mode, keyword, status, halted_at, reason, output, warnings, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SourceHash, rec.Source, rec.Profile, rec.Mode, rec.Keyword, rec.Status, rec.HaltedAt, rec.Reason,
		rec.Output, string(warnings), rec.Duration.Milliseconds(), rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, st := range rec.Stages {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stage_results (id, run_id, position, stage, verdict, model, attempts, findings, rewrites, score, summary, reason, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.newID(), rec.ID, i, st.Stage, st.Verdict, st.Model, st.Attempts, st.Findings, st.Rewrites, st.Score, st.Summary,
			st.Reason, st.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("insert stage %s: %w", st.Stage, err)
		}
	}

	if rec.Title != "" || rec.Description != "" || rec.Schema != "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO artifacts (run_id, title, description, schema_json) VALUES (?, ?, ?, ?)`,
			rec.ID, rec.Title, rec.Description, rec.Schema)
		if err != nil {
			return fmt.Errorf("insert artifact: %w", err)
		}
	}

	return tx.Commit()
}

const runColumns = `r.id, r.source_hash, r.source_text, r.profile, r.mode, COALESCE(r.keyword, ''), r.status,
	COALESCE(r.halted_at, ''), COALESCE(r.reason, ''), COALESCE(r.output, ''), COALESCE(r.warnings, ''),
	COALESCE(r.duration_ms, 0), r.created_at,
	COALESCE(a.title, ''), COALESCE(a.description, ''), COALESCE(a.schema_json, '')`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*internal.RunRecord, error) {
	var rec internal.RunRecord
	var warnings string
	var durationMs int64
	err := row.Scan(&rec.ID, &rec.SourceHash, &rec.Source, &rec.Profile, &rec.Mode, &rec.Keyword, &rec.Status,
		&rec.HaltedAt, &rec.Reason, &rec.Output, &warnings, &durationMs, &rec.CreatedAt,
		&rec.Title, &rec.Description, &rec.Schema)
	if err != nil {
		return nil, err
	}
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	if warnings != "" && warnings != "null" {
		if err := json.Unmarshal([]byte(warnings), &rec.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings: %w", err)
		}
	}
	return &rec, nil
}

// GetRun returns a run with its stage results.
func (s *Store) GetRun(ctx context.Context, id string) (*internal.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs r LEFT JOIN artifacts a ON a.run_id = r.id WHERE r.id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rec.Stages, err = s.stages(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) stages(ctx context.Context, runID string) ([]internal.StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, verdict, COALESCE(model, ''), COALESCE(attempts, 0), COALESCE(findings, 0), COALESCE(rewrites, 0),
		        COALESCE(score, 0), COALESCE(summary, ''), COALESCE(reason, ''), COALESCE(duration_ms, 0)
		 FROM stage_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.StageRecord
	for rows.Next() {
		var st internal.StageRecord
		var durationMs int64
		if err := rows.Scan(&st.Stage, &st.Verdict, &st.Model, &st.Attempts, &st.Findings, &st.Rewrites, &st.Score, &st.Summary, &st.Reason, &durationMs); err != nil {
			return nil, err
		}
		st.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListRuns returns the most recent runs first, without stage results. A
// non-positive limit returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]internal.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs r LEFT JOIN artifacts a ON a.run_id = r.id ORDER BY r.created_at DESC, r.id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []internal.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *rec)
	}
	return results, rows.Err()
}

// LatestPassed returns the most recent passed run of the same source text,
// profile and mode, if any.
func (s *Store) LatestPassed(ctx context.Context, source, profile, mode string) (*internal.RunRecord, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs WHERE source_hash = ? AND profile = ? AND mode = ? AND status = 'passed'
		 ORDER BY created_at DESC LIMIT 1`,
		SourceHash(source), profile, mode).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rec, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// DeleteRun permanently removes a run and its dependent rows.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stage_results WHERE run_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE run_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

// ClearRuns removes every run and returns how many were deleted.
func (s *Store) ClearRuns(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stage_results`); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// StageStats summarises the verdicts of one gate across stored runs.
type StageStats struct {
	Stage       string
	Runs        int
	Passed      int
	Failed      int
	FailSoft    int
	AvgAttempts float64
	AvgScore    float64
}

// Stats summarises the run history.
type Stats struct {
	TotalRuns int
	Passed    int
	Warnings  int
	Halted    int
	Stages    []StageStats
}

// Stats returns summary statistics for the run history. Stages are listed
// in the order they first appear in the pipeline.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'passed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'warnings' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'halted' THEN 1 ELSE 0 END), 0)
		FROM runs`).Scan(
		&stats.TotalRuns,
		&stats.Passed,
		&stats.Warnings,
		&stats.Halted,
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			stage,
			COUNT(*),
			COALESCE(SUM(CASE WHEN verdict = 'pass' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN verdict = 'fail' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN verdict = 'fail-soft' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(attempts), 0),
			COALESCE(AVG(score), 0)
		FROM stage_results
		GROUP BY stage
		ORDER BY MIN(position), stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var st StageStats
		if err := rows.Scan(&st.Stage, &st.Runs, &st.Passed, &st.Failed, &st.FailSoft, &st.AvgAttempts, &st.AvgScore); err != nil {
			return nil, err
		}
		stats.Stages = append(stats.Stages, st)
	}
	return stats, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SourceHash keys a source text: whitespace-trimmed, NFC-normalised and
// hashed, so equivalent inputs share a key.
func SourceHash(text string) string {
	sum := sha256.Sum256([]byte(normalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n")))
}
