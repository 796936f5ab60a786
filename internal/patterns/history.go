package patterns

import (
	"sort"
	"sync"
	"time"

	"github.com/miradorstack/mirador-resolver/internal/models"
	"github.com/miradorstack/mirador-resolver/internal/signature"
)

const (
	// DefaultCapacity bounds the global window of raw records.
	DefaultCapacity = 1000
	// DefaultTimestampCapacity bounds each signature's timestamp sequence.
	DefaultTimestampCapacity = 500

	topPatternLimit = 10
)

// History keeps a rolling window of raw error records plus lifetime per-signature state.
// Pattern counts are not decremented when the window evicts a record.
type History struct {
	mu           sync.RWMutex
	capacity     int
	timestampCap int
	records      []models.ErrorRecord
	head         int
	states       map[models.Signature]*models.PatternState
	now          func() time.Time
}

// NewHistory constructs a History; non-positive capacities fall back to defaults.
func NewHistory(capacity, timestampCap int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if timestampCap <= 0 {
		timestampCap = DefaultTimestampCapacity
	}
	return &History{
		capacity:     capacity,
		timestampCap: timestampCap,
		records:      make([]models.ErrorRecord, 0, capacity),
		states:       make(map[models.Signature]*models.PatternState),
		now:          time.Now,
	}
}

// WithClock overrides the clock used to stamp records lacking an observation time.
func (h *History) WithClock(now func() time.Time) *History {
	if now != nil {
		h.now = now
	}
	return h
}

// Record stores a copy of rec, updates its pattern state and returns its signature.
func (h *History) Record(rec models.ErrorRecord) models.Signature {
	sig, _ := h.Observe(rec)
	return sig
}

// Observe is Record that also returns the occurrence count of the signature as
// of this record, read under the same lock as the update.
func (h *History) Observe(rec models.ErrorRecord) (models.Signature, int) {
	stored := rec.Clone()
	if stored.ObservedAt.IsZero() {
		stored.ObservedAt = h.now()
	}
	sig := signature.Compute(stored)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.push(stored)
	state, ok := h.states[sig]
	if !ok {
		state = &models.PatternState{
			Signature: sig,
			ErrorType: stored.Type,
			FirstSeen: stored.ObservedAt,
			LastSeen:  stored.ObservedAt,
		}
		h.states[sig] = state
	}
	state.OccurrenceCount++
	state.Timestamps = insertOrdered(state.Timestamps, stored.ObservedAt, h.timestampCap)
	if stored.ObservedAt.Before(state.FirstSeen) {
		state.FirstSeen = stored.ObservedAt
	}
	if stored.ObservedAt.After(state.LastSeen) {
		state.LastSeen = stored.ObservedAt
	}
	return sig, state.OccurrenceCount
}

// Frequency returns the lifetime occurrence count of sig.
func (h *History) Frequency(sig models.Signature) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if state, ok := h.states[sig]; ok {
		return state.OccurrenceCount
	}
	return 0
}

// Pattern returns a copy of the state tracked for sig.
func (h *History) Pattern(sig models.Signature) (models.PatternState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	state, ok := h.states[sig]
	if !ok {
		return models.PatternState{}, false
	}
	return copyState(state), true
}

// Len returns the number of raw records currently retained.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Recent returns up to limit retained records, newest first.
func (h *History) Recent(limit int) []models.ErrorRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ordered := h.ordered()
	if limit <= 0 || limit > len(ordered) {
		limit = len(ordered)
	}
	out := make([]models.ErrorRecord, 0, limit)
	for i := len(ordered) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, ordered[i].Clone())
	}
	return out
}

// Trends summarises the retained window relative to now.
func (h *History) Trends(now time.Time) models.TrendSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	summary := models.TrendSummary{TotalErrors: len(h.records)}
	for _, rec := range h.records {
		if rec.ObservedAt.After(dayAgo) {
			summary.ErrorsLast24h++
		}
		if rec.ObservedAt.After(weekAgo) {
			summary.ErrorsLastWeek++
		}
	}
	summary.TopPatterns = h.topPatterns(topPatternLimit)
	summary.ErrorRatePerHour = float64(summary.ErrorsLast24h) / 24
	summary.TrendingUp = float64(summary.ErrorsLast24h) > float64(summary.ErrorsLastWeek)/7
	return summary
}

func (h *History) topPatterns(limit int) []models.PatternCount {
	counts := make([]models.PatternCount, 0, len(h.states))
	for sig, state := range h.states {
		counts = append(counts, models.PatternCount{Signature: sig, ErrorType: state.ErrorType, Count: state.OccurrenceCount})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count == counts[j].Count {
			return counts[i].Signature < counts[j].Signature
		}
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

func (h *History) push(rec models.ErrorRecord) {
	if len(h.records) < h.capacity {
		h.records = append(h.records, rec)
		return
	}
	h.records[h.head] = rec
	h.head = (h.head + 1) % h.capacity
}

// ordered returns retained records oldest first. Callers hold the lock.
func (h *History) ordered() []models.ErrorRecord {
	if len(h.records) < h.capacity || h.head == 0 {
		return h.records
	}
	out := make([]models.ErrorRecord, 0, len(h.records))
	out = append(out, h.records[h.head:]...)
	return append(out, h.records[:h.head]...)
}

func insertOrdered(ts []time.Time, at time.Time, limit int) []time.Time {
	idx := sort.Search(len(ts), func(i int) bool { return ts[i].After(at) })
	ts = append(ts, time.Time{})
	copy(ts[idx+1:], ts[idx:])
	ts[idx] = at
	if len(ts) > limit {
		ts = append(ts[:0], ts[len(ts)-limit:]...)
	}
	return ts
}

func copyState(state *models.PatternState) models.PatternState {
	out := *state
	out.Timestamps = append([]time.Time(nil), state.Timestamps...)
	return out
}
