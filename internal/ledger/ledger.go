// Package ledger keeps a bounded history of resolution plans and the running
// outcome counters learned from them.
package ledger

import (
	"math"
	"sync"
	"time"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

// DefaultCapacity bounds the number of retained entries.
const DefaultCapacity = 500

const successCutoff = 0.5

// OutcomeCounter tallies success data points for one error type.
type OutcomeCounter struct {
	Successes int `json:"successes"`
	Total     int `json:"total"`
}

// Ledger is a ring buffer of plans indexed by resolution id. Per-type outcome
// counters are maintained independently of eviction.
type Ledger struct {
	mu       sync.RWMutex
	capacity int
	entries  []models.LedgerEntry
	head     int
	index    map[string]int
	outcomes map[models.ErrorType]*OutcomeCounter
	appended int

	criticalDay   string
	criticalCount int

	now func() time.Time
}

// New constructs a Ledger; a non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		capacity: capacity,
		entries:  make([]models.LedgerEntry, 0, capacity),
		index:    make(map[string]int, capacity),
		outcomes: make(map[models.ErrorType]*OutcomeCounter),
		now:      time.Now,
	}
}

// WithClock overrides the clock used to stamp feedback.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	if now != nil {
		l.now = now
	}
	return l
}

// Append stores a copy of plan, evicting the oldest entry when full.
func (l *Ledger) Append(plan models.ResolutionPlan) {
	entry := models.LedgerEntry{
		Plan:                    plan.Clone(),
		FinalEffectivenessScore: clampScore(plan.EffectivenessScore),
	}
	entry.Plan.EffectivenessScore = entry.FinalEffectivenessScore

	l.mu.Lock()
	defer l.mu.Unlock()

	var slot int
	if len(l.entries) < l.capacity {
		slot = len(l.entries)
		l.entries = append(l.entries, entry)
	} else {
		slot = l.head
		delete(l.index, l.entries[slot].Plan.ID)
		l.entries[slot] = entry
		l.head = (l.head + 1) % l.capacity
	}
	if entry.Plan.ID != "" {
		l.index[entry.Plan.ID] = slot
	}
	l.appended++
	l.recordOutcome(entry.Plan.ErrorType, entry.Plan.Success)

	if entry.Plan.Severity == models.SeverityCritical {
		at := entry.Plan.GeneratedAt
		if at.IsZero() {
			at = l.now()
		}
		day := dayKey(at)
		if day != l.criticalDay {
			l.criticalDay = day
			l.criticalCount = 0
		}
		l.criticalCount++
	}
}

// Learn applies feedback to the plan with the given id. The score is clamped to
// [0, 1] and a success data point (score > 0.5) is added to the plan's error type.
// ok is false when the id is not retained; nothing is mutated in that case.
func (l *Ledger) Learn(resolutionID, feedback string, score float64) (models.LedgerEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, found := l.index[resolutionID]
	if !found {
		return models.LedgerEntry{}, false
	}
	score = clampScore(score)
	entry := &l.entries[slot]
	entry.UserFeedback = feedback
	entry.Plan.EffectivenessScore = score
	entry.FinalEffectivenessScore = score
	entry.FeedbackAt = l.now()
	l.recordOutcome(entry.Plan.ErrorType, score > successCutoff)
	return entry.Clone(), true
}

// Get returns a copy of the entry with the given id.
func (l *Ledger) Get(resolutionID string) (models.LedgerEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	slot, ok := l.index[resolutionID]
	if !ok {
		return models.LedgerEntry{}, false
	}
	return l.entries[slot].Clone(), true
}

// Len returns the number of retained entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Appended returns the lifetime number of appended plans.
func (l *Ledger) Appended() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.appended
}

// SuccessRate returns the lifetime success ratio for errorType, or zero without data.
func (l *Ledger) SuccessRate(errorType models.ErrorType) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	counter, ok := l.outcomes[errorType]
	if !ok || counter.Total == 0 {
		return 0
	}
	return float64(counter.Successes) / float64(counter.Total)
}

// Outcomes returns the lifetime success and total data points for errorType.
func (l *Ledger) Outcomes(errorType models.ErrorType) (successes, total int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if counter, ok := l.outcomes[errorType]; ok {
		return counter.Successes, counter.Total
	}
	return 0, 0
}

// SuccessRates returns the success ratio of every error type with data.
func (l *Ledger) SuccessRates() map[models.ErrorType]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rates := make(map[models.ErrorType]float64, len(l.outcomes))
	for errorType, counter := range l.outcomes {
		if counter.Total > 0 {
			rates[errorType] = float64(counter.Successes) / float64(counter.Total)
		}
	}
	return rates
}

// OutcomeCounts returns a copy of every per-type outcome counter.
func (l *Ledger) OutcomeCounts() map[models.ErrorType]OutcomeCounter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[models.ErrorType]OutcomeCounter, len(l.outcomes))
	for errorType, counter := range l.outcomes {
		out[errorType] = *counter
	}
	return out
}

// Recent returns up to window entries, oldest first.
func (l *Ledger) Recent(window int) []models.LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	recent := l.recent(window)
	out := make([]models.LedgerEntry, 0, len(recent))
	for _, entry := range recent {
		out = append(out, entry.Clone())
	}
	return out
}

// RecentSuccessRate returns the fraction of successful outcomes among the last
// window entries, or zero when the ledger is empty.
func (l *Ledger) RecentSuccessRate(window int) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	recent := l.recent(window)
	if len(recent) == 0 {
		return 0
	}
	succeeded := 0
	for _, entry := range recent {
		if Succeeded(entry) {
			succeeded++
		}
	}
	return float64(succeeded) / float64(len(recent))
}

// RecentFailureRatio returns the failed fraction of the last window entries and
// how many entries were considered.
func (l *Ledger) RecentFailureRatio(window int) (float64, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	recent := l.recent(window)
	if len(recent) == 0 {
		return 0, 0
	}
	failed := 0
	for _, entry := range recent {
		if !Succeeded(entry) {
			failed++
		}
	}
	return float64(failed) / float64(len(recent)), len(recent)
}

// AverageGenerationTime is the mean plan generation cost over the last window entries.
func (l *Ledger) AverageGenerationTime(window int) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	recent := l.recent(window)
	if len(recent) == 0 {
		return 0
	}
	var total int64
	for _, entry := range recent {
		total += entry.Plan.ExecutionTimeMicros
	}
	return time.Duration(total/int64(len(recent))) * time.Microsecond
}

// CriticalToday returns the number of critical plans appended on the calendar day of now.
func (l *Ledger) CriticalToday(now time.Time) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if dayKey(now) != l.criticalDay {
		return 0
	}
	return l.criticalCount
}

// Succeeded reports the outcome of an entry: learned feedback wins over the
// generator's own judgement.
func Succeeded(entry models.LedgerEntry) bool {
	if entry.HasFeedback() {
		return entry.FinalEffectivenessScore > successCutoff
	}
	return entry.Plan.Success
}

func (l *Ledger) recordOutcome(errorType models.ErrorType, success bool) {
	counter, ok := l.outcomes[errorType]
	if !ok {
		counter = &OutcomeCounter{}
		l.outcomes[errorType] = counter
	}
	counter.Total++
	if success {
		counter.Successes++
	}
}

// recent returns the newest window entries oldest first without copying plans.
// Callers hold the lock.
func (l *Ledger) recent(window int) []models.LedgerEntry {
	ordered := l.ordered()
	if window <= 0 || window > len(ordered) {
		return ordered
	}
	return ordered[len(ordered)-window:]
}

func (l *Ledger) ordered() []models.LedgerEntry {
	if len(l.entries) < l.capacity || l.head == 0 {
		return l.entries
	}
	out := make([]models.LedgerEntry, 0, len(l.entries))
	out = append(out, l.entries[l.head:]...)
	return append(out, l.entries[:l.head]...)
}

func clampScore(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
