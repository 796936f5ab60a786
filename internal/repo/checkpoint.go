package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/miradorstack/mirador-resolver/internal/ledger"
	"github.com/miradorstack/mirador-resolver/internal/patterns"
)

const (
	kindHistory = "history"
	kindLedger  = "ledger"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS checkpoints (
	kind     TEXT PRIMARY KEY,
	payload  TEXT NOT NULL,
	saved_at TIMESTAMP NOT NULL
);`

// CheckpointRepo persists history and ledger snapshots as JSON payloads in SQLite.
type CheckpointRepo struct {
	db   *sql.DB
	path string
}

// NewCheckpointRepo opens (or creates) the database at path. ":memory:" is supported.
func NewCheckpointRepo(path string) (*CheckpointRepo, error) {
	if path == "" {
		return nil, errors.New("checkpoint path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, openError("create database directory", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, openError("open database", err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, openError(pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, openError("init schema", err)
	}

	return &CheckpointRepo{db: db, path: path}, nil
}

// SaveHistory stores the history snapshot, replacing any previous one.
func (r *CheckpointRepo) SaveHistory(ctx context.Context, snap patterns.Snapshot) error {
	return r.save(ctx, kindHistory, snap, snap.TakenAt)
}

// LoadHistory returns the stored history snapshot, if any.
func (r *CheckpointRepo) LoadHistory(ctx context.Context) (patterns.Snapshot, bool, error) {
	var snap patterns.Snapshot
	ok, err := r.load(ctx, kindHistory, &snap)
	return snap, ok, err
}

// SaveLedger stores the ledger snapshot, replacing any previous one.
func (r *CheckpointRepo) SaveLedger(ctx context.Context, snap ledger.Snapshot) error {
	return r.save(ctx, kindLedger, snap, snap.TakenAt)
}

// LoadLedger returns the stored ledger snapshot, if any.
func (r *CheckpointRepo) LoadLedger(ctx context.Context) (ledger.Snapshot, bool, error) {
	var snap ledger.Snapshot
	ok, err := r.load(ctx, kindLedger, &snap)
	return snap, ok, err
}

// Close releases the database handle.
func (r *CheckpointRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *CheckpointRepo) save(ctx context.Context, kind string, v any, takenAt time.Time) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return &CheckpointError{Op: OpSave, Kind: kind, Stage: "encode", Err: err}
	}
	if takenAt.IsZero() {
		takenAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO checkpoints (kind, payload, saved_at) VALUES (?, ?, ?)
ON CONFLICT(kind) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		kind, string(payload), takenAt.UTC())
	if err != nil {
		return &CheckpointError{Op: OpSave, Kind: kind, Stage: "write", Err: err}
	}
	return nil
}

func (r *CheckpointRepo) load(ctx context.Context, kind string, dst any) (bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM checkpoints WHERE kind = ?`, kind).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &CheckpointError{Op: OpLoad, Kind: kind, Stage: "read", Err: err}
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return false, &CheckpointError{Op: OpLoad, Kind: kind, Stage: "decode", Err: err}
	}
	return true, nil
}

// execWithRetry retries statements that fail with "database is locked".
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}
