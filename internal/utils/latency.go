package utils

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// LatencySummary condenses a latency window for health reporting.
type LatencySummary struct {
	Samples int
	P50     time.Duration
	P95     time.Duration
	Max     time.Duration
}

// LatencyWindow keeps the most recent request latencies in a ring.
type LatencyWindow struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
}

// NewLatencyWindow returns a window holding up to size samples; a non-positive
// size falls back to 512.
func NewLatencyWindow(size int) *LatencyWindow {
	if size <= 0 {
		size = 512
	}
	return &LatencyWindow{samples: make([]float64, size)}
}

// Observe adds d to the window, overwriting the oldest sample once full.
func (w *LatencyWindow) Observe(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples[w.next] = float64(d)
	w.next = (w.next + 1) % len(w.samples)
	if w.next == 0 {
		w.full = true
	}
}

// Summary computes empirical quantiles over the retained samples.
func (w *LatencyWindow) Summary() LatencySummary {
	w.mu.Lock()
	n := w.next
	if w.full {
		n = len(w.samples)
	}
	sorted := append([]float64(nil), w.samples[:n]...)
	w.mu.Unlock()

	if len(sorted) == 0 {
		return LatencySummary{}
	}
	sort.Float64s(sorted)
	return LatencySummary{
		Samples: len(sorted),
		P50:     time.Duration(stat.Quantile(0.5, stat.Empirical, sorted, nil)),
		P95:     time.Duration(stat.Quantile(0.95, stat.Empirical, sorted, nil)),
		Max:     time.Duration(sorted[len(sorted)-1]),
	}
}
