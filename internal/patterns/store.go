package patterns

import (
	"context"
	"time"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

// Snapshot is a point-in-time copy of a History used for checkpointing.
type Snapshot struct {
	Records  []models.ErrorRecord  `json:"records"`
	Patterns []models.PatternState `json:"patterns"`
	TakenAt  time.Time             `json:"taken_at"`
}

// Store abstracts persistence for history snapshots.
type Store interface {
	SaveHistory(ctx context.Context, snap Snapshot) error
	LoadHistory(ctx context.Context) (Snapshot, bool, error)
}

// Snapshot copies the retained window (oldest first) and every pattern state.
func (h *History) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snap := Snapshot{TakenAt: h.now()}
	for _, rec := range h.ordered() {
		snap.Records = append(snap.Records, rec.Clone())
	}
	for _, state := range h.states {
		snap.Patterns = append(snap.Patterns, copyState(state))
	}
	return snap
}

// Restore replaces the current contents with snap, trimming to the configured capacities.
func (h *History) Restore(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := snap.Records
	if len(records) > h.capacity {
		records = records[len(records)-h.capacity:]
	}
	h.records = make([]models.ErrorRecord, 0, h.capacity)
	h.head = 0
	for _, rec := range records {
		h.records = append(h.records, rec.Clone())
	}

	h.states = make(map[models.Signature]*models.PatternState, len(snap.Patterns))
	for _, state := range snap.Patterns {
		restored := state
		restored.Timestamps = nil
		for _, ts := range state.Timestamps {
			restored.Timestamps = insertOrdered(restored.Timestamps, ts, h.timestampCap)
		}
		if restored.OccurrenceCount < len(restored.Timestamps) {
			restored.OccurrenceCount = len(restored.Timestamps)
		}
		h.states[state.Signature] = &restored
	}
}
