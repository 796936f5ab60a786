package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is one periodic unit of work.
type JobFunc func(ctx context.Context) error

// JobState tracks execution of a registered job.
type JobState struct {
	Name       string
	Schedule   string
	RunCount   int64
	ErrorCount int64
	LastRunAt  time.Time
	LastError  string
}

// Scheduler runs background jobs (alert evaluation, checkpointing) on cron schedules.
type Scheduler struct {
	logger *slog.Logger
	cron   *cron.Cron

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	jobs   map[string]*JobState
}

// New constructs an idle scheduler. Overlapping runs of the same job are skipped.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	adapter := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger: logger,
		cron:   cron.New(cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter))),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*JobState),
	}
}

// Add registers fn under name. schedule accepts standard five-field expressions
// and descriptors such as "@every 1m".
func (s *Scheduler) Add(name, schedule string, fn JobFunc) error {
	if name == "" {
		return errors.New("job name required")
	}
	if fn == nil {
		return fmt.Errorf("job %s: function required", name)
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", name, schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	state := &JobState{Name: name, Schedule: schedule}
	s.jobs[name] = state

	_, err := s.cron.AddFunc(schedule, func() { s.run(state, fn) })
	if err != nil {
		delete(s.jobs, name)
		return fmt.Errorf("job %s: %w", name, err)
	}
	return nil
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.Jobs())))
}

// Stop cancels running jobs' context and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// Jobs returns a snapshot of job states.
func (s *Scheduler) Jobs() []JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobState, 0, len(s.jobs))
	for _, state := range s.jobs {
		out = append(out, *state)
	}
	return out
}

func (s *Scheduler) run(state *JobState, fn JobFunc) {
	start := time.Now()
	err := fn(s.ctx)

	s.mu.Lock()
	state.RunCount++
	state.LastRunAt = start
	if err != nil {
		state.ErrorCount++
		state.LastError = err.Error()
	} else {
		state.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("scheduled job failed", slog.String("job", state.Name), slog.Any("error", err))
		return
	}
	s.logger.Debug("scheduled job finished", slog.String("job", state.Name), slog.Duration("took", time.Since(start)))
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
