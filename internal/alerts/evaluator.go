// Package alerts evaluates error trends and resolution outcomes against
// configured thresholds.
package alerts

import (
	"fmt"
	"time"

	"github.com/miradorstack/mirador-resolver/internal/ledger"
	"github.com/miradorstack/mirador-resolver/internal/models"
)

// Rule names attached to raised alerts.
const (
	RuleErrorRate            = "error_rate"
	RuleTrendingUp           = "trending_up"
	RuleResolutionFailures   = "resolution_failures"
	RuleCriticalPerDay       = "critical_per_day"
	RuleCriticalPerDayStrict = "critical_per_day_strict"
)

// Thresholds holds independently configurable alert limits. A non-positive
// numeric threshold disables its rule.
type Thresholds struct {
	ErrorRatePerHour      float64
	TrendingUp            bool
	FailedResolutionRatio float64
	FailureWindow         int
	CriticalPerDay        int
	CriticalPerDayStrict  int
}

// DefaultThresholds returns the stock alert limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ErrorRatePerHour:      10,
		TrendingUp:            true,
		FailedResolutionRatio: 0.3,
		FailureWindow:         20,
		CriticalPerDay:        5,
		CriticalPerDayStrict:  3,
	}
}

// Input is the state an evaluation runs against.
type Input struct {
	Trends        models.TrendSummary
	Recent        []models.LedgerEntry
	CriticalToday int
	Now           time.Time
}

// Evaluator applies Thresholds to an Input. It holds no mutable state.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(thresholds Thresholds) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Thresholds returns the configured limits.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Window is the number of most recent ledger entries the failure rule inspects.
func (e *Evaluator) Window() int {
	if e.thresholds.FailureWindow <= 0 {
		return DefaultThresholds().FailureWindow
	}
	return e.thresholds.FailureWindow
}

// Evaluate returns every alert whose rule fires; rules are independent of each other.
func (e *Evaluator) Evaluate(in Input) []models.Alert {
	t := e.thresholds
	var raised []models.Alert
	add := func(rule string, severity models.Severity, msg string) {
		raised = append(raised, models.Alert{Rule: rule, Severity: severity, Message: msg, RaisedAt: in.Now})
	}

	if t.ErrorRatePerHour > 0 && in.Trends.ErrorRatePerHour > t.ErrorRatePerHour {
		add(RuleErrorRate, models.SeverityHigh,
			fmt.Sprintf("High error rate: %.1f errors/hour (threshold %.1f)", in.Trends.ErrorRatePerHour, t.ErrorRatePerHour))
	}

	if t.TrendingUp && in.Trends.TrendingUp {
		add(RuleTrendingUp, models.SeverityMedium, "Error rate is trending upward")
	}

	if t.FailedResolutionRatio > 0 {
		recent := in.Recent
		if window := e.Window(); len(recent) > window {
			recent = recent[len(recent)-window:]
		}
		if len(recent) > 0 {
			failed := 0
			for _, entry := range recent {
				if !ledger.Succeeded(entry) {
					failed++
				}
			}
			ratio := float64(failed) / float64(len(recent))
			if ratio > t.FailedResolutionRatio {
				add(RuleResolutionFailures, models.SeverityHigh,
					fmt.Sprintf("High resolution failure rate: %.1f%% of last %d resolutions", ratio*100, len(recent)))
			}
		}
	}

	if t.CriticalPerDay > 0 && in.CriticalToday > t.CriticalPerDay {
		add(RuleCriticalPerDay, models.SeverityCritical,
			fmt.Sprintf("%d critical errors today (threshold %d)", in.CriticalToday, t.CriticalPerDay))
	}
	if t.CriticalPerDayStrict > 0 && in.CriticalToday > t.CriticalPerDayStrict {
		add(RuleCriticalPerDayStrict, models.SeverityHigh,
			fmt.Sprintf("%d critical errors today (strict threshold %d)", in.CriticalToday, t.CriticalPerDayStrict))
	}

	return raised
}
