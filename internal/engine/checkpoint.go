package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/miradorstack/mirador-resolver/internal/ledger"
	"github.com/miradorstack/mirador-resolver/internal/patterns"
)

// CheckpointStore persists history and ledger snapshots.
type CheckpointStore interface {
	patterns.Store
	ledger.Store
}

// SaveCheckpoint writes the current history and ledger to store.
func (e *Engine) SaveCheckpoint(ctx context.Context, store CheckpointStore) error {
	if store == nil {
		return nil
	}
	history := e.history.Snapshot()
	if err := store.SaveHistory(ctx, history); err != nil {
		return fmt.Errorf("save history checkpoint: %w", err)
	}
	book := e.ledger.Snapshot()
	if err := store.SaveLedger(ctx, book); err != nil {
		return fmt.Errorf("save ledger checkpoint: %w", err)
	}
	e.logger.Debug("checkpoint saved",
		slog.Int("records", len(history.Records)),
		slog.Int("patterns", len(history.Patterns)),
		slog.Int("resolutions", len(book.Entries)),
	)
	return nil
}

// RestoreCheckpoint loads history and ledger snapshots from store. restored is
// false when the store holds neither.
func (e *Engine) RestoreCheckpoint(ctx context.Context, store CheckpointStore) (restored bool, err error) {
	if store == nil {
		return false, nil
	}
	history, ok, err := store.LoadHistory(ctx)
	if err != nil {
		return false, fmt.Errorf("load history checkpoint: %w", err)
	}
	if ok {
		e.history.Restore(history)
		restored = true
	}
	book, ok, err := store.LoadLedger(ctx)
	if err != nil {
		return restored, fmt.Errorf("load ledger checkpoint: %w", err)
	}
	if ok {
		e.ledger.Restore(book)
		restored = true
	}
	if restored {
		e.logger.Info("checkpoint restored",
			slog.Int("records", len(history.Records)),
			slog.Int("resolutions", len(book.Entries)),
		)
	}
	return restored, nil
}
