package patterns

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

// MinRecordsForPrediction is the history window length below which PredictNext
// reports nothing.
const MinRecordsForPrediction = 5

const (
	minTimestampsForPrediction = 3
	overdueFactor              = 0.8
)

// Predictor estimates which signature is most overdue for another occurrence.
type Predictor struct {
	history *History
}

// NewPredictor constructs a Predictor reading from history.
func NewPredictor(history *History) *Predictor {
	return &Predictor{history: history}
}

// PredictNext returns the signature whose time since last occurrence most exceeds its
// mean inter-arrival interval. ok is false when the window holds fewer than five records
// or no signature qualifies.
func (p *Predictor) PredictNext(now time.Time) (prediction models.Prediction, ok bool) {
	if p == nil || p.history == nil {
		return models.Prediction{}, false
	}
	h := p.history
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.records) < MinRecordsForPrediction {
		return models.Prediction{}, false
	}

	for sig, state := range h.states {
		if len(state.Timestamps) < minTimestampsForPrediction {
			continue
		}
		intervals := make([]float64, 0, len(state.Timestamps)-1)
		for i := 1; i < len(state.Timestamps); i++ {
			intervals = append(intervals, state.Timestamps[i].Sub(state.Timestamps[i-1]).Seconds())
		}
		avg := stat.Mean(intervals, nil)
		if avg <= 0 {
			continue
		}
		sinceLast := now.Sub(state.Timestamps[len(state.Timestamps)-1]).Seconds()
		if sinceLast <= overdueFactor*avg {
			continue
		}
		probability := sinceLast / avg
		if probability > 1 {
			probability = 1
		}
		if !ok || probability > prediction.Probability ||
			(probability == prediction.Probability && sig < prediction.Signature) {
			prediction = models.Prediction{
				Signature:       sig,
				ErrorType:       state.ErrorType,
				Probability:     probability,
				AverageInterval: time.Duration(avg * float64(time.Second)),
			}
			ok = true
		}
	}
	return prediction, ok
}
