package engine

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-resolver/internal/alerts"
	"github.com/miradorstack/mirador-resolver/internal/ledger"
	"github.com/miradorstack/mirador-resolver/internal/metrics"
	"github.com/miradorstack/mirador-resolver/internal/models"
	"github.com/miradorstack/mirador-resolver/internal/patterns"
)

// Options configures capacities, thresholds and default flags.
type Options struct {
	HistoryCapacity          int
	TimestampCapacity        int
	LedgerCapacity           int
	RecurrenceThreshold      int
	DefaultFlags             models.Flags
	MaxAverageGenerationTime time.Duration
	ReportWindow             int
	Alerts                   alerts.Thresholds
}

// DefaultOptions returns the stock engine configuration.
func DefaultOptions() Options {
	return Options{
		HistoryCapacity:          patterns.DefaultCapacity,
		TimestampCapacity:        patterns.DefaultTimestampCapacity,
		LedgerCapacity:           ledger.DefaultCapacity,
		RecurrenceThreshold:      DefaultRecurrenceThreshold,
		DefaultFlags:             models.Flags{AutoFixEnabled: true},
		MaxAverageGenerationTime: time.Second,
		ReportWindow:             50,
		Alerts:                   alerts.DefaultThresholds(),
	}
}

// Option customises an Engine at construction time.
type Option func(*Engine)

// WithClock overrides the wall clock used for timestamps and windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithNotifier delivers raised alerts to n.
func WithNotifier(n alerts.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithGuidance serves guided resolutions from g.
func WithGuidance(g *GuidanceEngine) Option {
	return func(e *Engine) { e.guidance = g }
}

// WithRegistry replaces the built-in healing registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// Engine owns all pattern and resolution state for one process. It is safe for
// concurrent use.
type Engine struct {
	logger    *slog.Logger
	opts      Options
	history   *patterns.History
	predictor *patterns.Predictor
	ledger    *ledger.Ledger
	selector  Selector
	registry  *Registry
	guidance  *GuidanceEngine
	evaluator *alerts.Evaluator
	notifier  alerts.Notifier
	now       func() time.Time
}

// New constructs an Engine.
func New(logger *slog.Logger, opts Options, options ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxAverageGenerationTime <= 0 {
		opts.MaxAverageGenerationTime = time.Second
	}
	if opts.ReportWindow <= 0 {
		opts.ReportWindow = 50
	}

	e := &Engine{
		logger:    logger,
		opts:      opts,
		selector:  NewSelector(opts.RecurrenceThreshold),
		registry:  NewRegistry(),
		evaluator: alerts.NewEvaluator(opts.Alerts),
		now:       time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	e.history = patterns.NewHistory(opts.HistoryCapacity, opts.TimestampCapacity).WithClock(e.now)
	e.predictor = patterns.NewPredictor(e.history)
	e.ledger = ledger.New(opts.LedgerCapacity).WithClock(e.now)
	return e
}

// Resolve records rec, selects a strategy, builds a plan, appends it to the
// ledger and evaluates alerts. It never fails for well-formed or malformed input.
func (e *Engine) Resolve(ctx context.Context, rec models.ErrorRecord) models.Resolution {
	start := time.Now()

	stored := rec.Clone()
	if stored.ObservedAt.IsZero() {
		stored.ObservedAt = e.now()
	}
	sig, frequency := e.history.Observe(stored)
	metrics.ObserveError(string(stored.Type))

	flags := models.FlagsFromContext(stored.Context, e.opts.DefaultFlags)
	strategy := e.selector.Select(stored.Type, frequency, flags)

	plan := e.generate(strategy, stored, frequency)
	plan.ID = uuid.NewString()
	plan.Signature = sig
	plan.ErrorType = stored.Type
	plan.GeneratedAt = e.now()
	plan.EffectivenessScore = clamp(plan.EffectivenessScore, 0, 1)
	if plan.Severity == "" {
		plan.Severity = models.DefaultSeverity(stored.Type)
	}
	elapsed := time.Since(start)
	plan.ExecutionTimeMicros = elapsed.Microseconds()

	e.ledger.Append(plan)
	metrics.ObservePlan(string(plan.Strategy), plan.Success, elapsed)
	e.logger.Debug("resolution generated",
		slog.String("resolution_id", plan.ID),
		slog.String("error_type", string(plan.ErrorType)),
		slog.String("strategy", string(plan.Strategy)),
		slog.Int("frequency", frequency),
		slog.Bool("success", plan.Success),
	)

	raised := e.CheckAlerts(ctx)
	return models.Resolution{
		Signature: sig,
		Frequency: frequency,
		Plan:      plan,
		Alerts:    raised,
	}
}

func (e *Engine) generate(strategy models.Strategy, rec models.ErrorRecord, frequency int) models.ResolutionPlan {
	switch strategy {
	case models.StrategySelfHealing:
		return e.registry.Generate(rec.Type, rec, frequency)
	case models.StrategyImmediateFix:
		return e.registry.Immediate(rec.Type, rec, frequency)
	case models.StrategyPreventiveAction:
		return e.registry.Preventive(rec.Type, rec, frequency)
	default:
		return e.guidance.Guided(rec)
	}
}

// Learn applies outcome feedback to a previously issued plan. ok is false when
// the resolution id is unknown or already evicted.
func (e *Engine) Learn(ctx context.Context, fb models.Feedback) (models.LedgerEntry, bool) {
	entry, ok := e.ledger.Learn(fb.ResolutionID, fb.Text, fb.EffectivenessScore)
	metrics.ObserveFeedback(ok)
	if !ok {
		e.logger.InfoContext(ctx, "feedback for unknown resolution", slog.String("resolution_id", fb.ResolutionID))
		return models.LedgerEntry{}, false
	}
	e.logger.InfoContext(ctx, "learned from feedback",
		slog.String("resolution_id", fb.ResolutionID),
		slog.String("error_type", string(entry.Plan.ErrorType)),
		slog.Float64("effectiveness", entry.FinalEffectivenessScore),
	)
	return entry, true
}

// CheckAlerts evaluates every alert rule against current state and hands any
// raised alerts to the notifier. Delivery failures are logged, never returned.
func (e *Engine) CheckAlerts(ctx context.Context) []models.Alert {
	now := e.now()
	raised := e.evaluator.Evaluate(alerts.Input{
		Trends:        e.history.Trends(now),
		Recent:        e.ledger.Recent(e.evaluator.Window()),
		CriticalToday: e.ledger.CriticalToday(now),
		Now:           now,
	})
	if len(raised) == 0 {
		return nil
	}
	for _, alert := range raised {
		metrics.ObserveAlert(alert.Rule)
	}
	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, raised); err != nil {
			e.logger.Warn("alert delivery failed", slog.Any("error", err))
		}
	}
	return raised
}

// Frequency returns the lifetime occurrence count for sig.
func (e *Engine) Frequency(sig models.Signature) int {
	return e.history.Frequency(sig)
}

// Trends summarises recent error volume.
func (e *Engine) Trends() models.TrendSummary {
	return e.history.Trends(e.now())
}

// PredictNext returns the signature most overdue for recurrence.
func (e *Engine) PredictNext() (models.Prediction, bool) {
	return e.predictor.PredictNext(e.now())
}

// SuccessRate returns the lifetime success ratio for errorType.
func (e *Engine) SuccessRate(errorType models.ErrorType) float64 {
	return e.ledger.SuccessRate(errorType)
}

// RecentSuccessRate returns the success ratio over the last window plans.
func (e *Engine) RecentSuccessRate(window int) float64 {
	return e.ledger.RecentSuccessRate(window)
}

// Resolution returns a copy of the ledger entry for id.
func (e *Engine) Resolution(id string) (models.LedgerEntry, bool) {
	return e.ledger.Get(id)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
