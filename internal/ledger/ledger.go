// Package ledger keeps an sqlite audit log of runs and the editions they wrote.
// The ledger is never consulted for deduplication.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/opmodel/editions/internal/metadata"
)

// Ledger is an open ledger database.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	Seed       uint64
	ConfigPath string
}

// RunRow is a stored run.
type RunRow struct {
	RunID           string
	StartedAtUnixMs int64
	Seed            uint64
	ConfigPath      string

	// FinishedAtUnixMs is zero for runs that never finished.
	FinishedAtUnixMs int64
	Requested        int
	Produced         int
}

// EditionRow is a stored edition.
type EditionRow struct {
	RunID           string
	GroupID         string
	Index           int
	Fingerprint     string
	ImagePath       string
	MetadataPath    string
	CreatedAtUnixMs int64
}

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" || p == "." {
		return nil, errors.New("missing ledger path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	// modernc.org/sqlite uses a file path as DSN.
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing ledger %s: %w", p, err)
	}

	// Render workers share one connection; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Ledger{db: db, now: time.Now}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Run records editions under one run id.
type Run struct {
	l  *Ledger
	id string
}

// ID returns the run id.
func (r *Run) ID() string {
	return r.id
}

// StartRun inserts a new run with a random id.
func (l *Ledger) StartRun(ctx context.Context, info RunInfo) (*Run, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx, `
INSERT INTO runs(run_id, started_at_unix_ms, seed, config_path)
VALUES(?, ?, ?, ?)
`, id, l.now().UnixMilli(), strconv.FormatUint(info.Seed, 10), info.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}
	return &Run{l: l, id: id}, nil
}

// RecordEdition stores one written edition.
func (r *Run) RecordEdition(ctx context.Context, ed metadata.Edition, w metadata.Written) error {
	_, err := r.l.db.ExecContext(ctx, `
INSERT INTO editions(run_id, group_id, idx, fingerprint, image_path, metadata_path, created_at_unix_ms)
VALUES(?, ?, ?, ?, ?, ?, ?)
`, r.id, ed.GroupID, ed.Index, ed.Fingerprint.String(), w.Image, w.Metadata, r.l.now().UnixMilli())
	return err
}

// Finish stores the run totals.
func (r *Run) Finish(ctx context.Context, requested, produced int) error {
	_, err := r.l.db.ExecContext(ctx, `
UPDATE runs
SET finished_at_unix_ms = ?, requested = ?, produced = ?
WHERE run_id = ?
`, r.l.now().UnixMilli(), requested, produced, r.id)
	return err
}

// Runs lists stored runs, oldest first.
func (l *Ledger) Runs(ctx context.Context) ([]RunRow, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT run_id, started_at_unix_ms, seed, config_path, finished_at_unix_ms, requested, produced
FROM runs
ORDER BY started_at_unix_ms ASC, rowid ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var (
			r    RunRow
			seed string
		)
		if err := rows.Scan(
			&r.RunID,
			&r.StartedAtUnixMs,
			&seed,
			&r.ConfigPath,
			&r.FinishedAtUnixMs,
			&r.Requested,
			&r.Produced,
		); err != nil {
			return nil, err
		}
		if r.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("run %s has malformed seed %q: %w", r.RunID, seed, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Editions lists the editions of one run ordered by group and index.
func (l *Ledger) Editions(ctx context.Context, runID string) ([]EditionRow, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT run_id, group_id, idx, fingerprint, image_path, metadata_path, created_at_unix_ms
FROM editions
WHERE run_id = ?
ORDER BY rowid ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EditionRow
	for rows.Next() {
		var e EditionRow
		if err := rows.Scan(
			&e.RunID,
			&e.GroupID,
			&e.Index,
			&e.Fingerprint,
			&e.ImagePath,
			&e.MetadataPath,
			&e.CreatedAtUnixMs,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	return migrateSchema(db)
}

func migrateSchema(db *sql.DB) error {
	// Schema versions:
	// - v1: runs and editions tables
	const targetVersion = 1

	var v int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("pragma user_version: %w", err)
	}
	if v >= targetVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  run_id TEXT PRIMARY KEY,
  started_at_unix_ms INTEGER NOT NULL,
  seed TEXT NOT NULL,
  config_path TEXT NOT NULL DEFAULT '',
  finished_at_unix_ms INTEGER NOT NULL DEFAULT 0,
  requested INTEGER NOT NULL DEFAULT 0,
  produced INTEGER NOT NULL DEFAULT 0
);
`); err != nil {
		return fmt.Errorf("create table runs: %w", err)
	}
	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS editions (
  run_id TEXT NOT NULL REFERENCES runs(run_id),
  group_id TEXT NOT NULL,
  idx INTEGER NOT NULL,
  fingerprint TEXT NOT NULL,
  image_path TEXT NOT NULL,
  metadata_path TEXT NOT NULL,
  created_at_unix_ms INTEGER NOT NULL,
  PRIMARY KEY (run_id, group_id, idx)
);
`); err != nil {
		return fmt.Errorf("create table editions: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d;", targetVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}
