package ledger

import (
	"context"
	"time"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

// Snapshot is a point-in-time copy of a Ledger used for checkpointing.
type Snapshot struct {
	Entries       []models.LedgerEntry                `json:"entries"`
	Outcomes      map[models.ErrorType]OutcomeCounter `json:"outcomes"`
	Appended      int                                 `json:"appended"`
	CriticalDay   string                              `json:"critical_day"`
	CriticalCount int                                 `json:"critical_count"`
	TakenAt       time.Time                           `json:"taken_at"`
}

// Store abstracts persistence for ledger snapshots.
type Store interface {
	SaveLedger(ctx context.Context, snap Snapshot) error
	LoadLedger(ctx context.Context) (Snapshot, bool, error)
}

// Snapshot copies retained entries (oldest first) and the running counters.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := Snapshot{
		Outcomes:      make(map[models.ErrorType]OutcomeCounter, len(l.outcomes)),
		Appended:      l.appended,
		CriticalDay:   l.criticalDay,
		CriticalCount: l.criticalCount,
		TakenAt:       l.now(),
	}
	for _, entry := range l.ordered() {
		snap.Entries = append(snap.Entries, entry.Clone())
	}
	for errorType, counter := range l.outcomes {
		snap.Outcomes[errorType] = *counter
	}
	return snap
}

// Restore replaces the ledger contents with snap, keeping only the newest entries
// that fit the configured capacity.
func (l *Ledger) Restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := snap.Entries
	if len(entries) > l.capacity {
		entries = entries[len(entries)-l.capacity:]
	}
	l.entries = make([]models.LedgerEntry, 0, l.capacity)
	l.index = make(map[string]int, l.capacity)
	l.head = 0
	for i, entry := range entries {
		l.entries = append(l.entries, entry.Clone())
		if entry.Plan.ID != "" {
			l.index[entry.Plan.ID] = i
		}
	}

	l.outcomes = make(map[models.ErrorType]*OutcomeCounter, len(snap.Outcomes))
	for errorType, counter := range snap.Outcomes {
		c := counter
		l.outcomes[errorType] = &c
	}
	l.appended = snap.Appended
	if l.appended < len(l.entries) {
		l.appended = len(l.entries)
	}
	l.criticalDay = snap.CriticalDay
	l.criticalCount = snap.CriticalCount
}
