package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAddValidatesJobs(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name     string
		job      string
		schedule string
		fn       JobFunc
		wantErr  bool
	}{
		{name: "valid descriptor", job: "alerts", schedule: "@every 1m", fn: noop},
		{name: "valid cron", job: "checkpoint", schedule: "*/5 * * * *", fn: noop},
		{name: "duplicate", job: "alerts", schedule: "@every 1m", fn: noop, wantErr: true},
		{name: "invalid schedule", job: "bad", schedule: "every minute", fn: noop, wantErr: true},
		{name: "missing name", job: "", schedule: "@every 1m", fn: noop, wantErr: true},
		{name: "missing func", job: "nil", schedule: "@every 1m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Add(tt.job, tt.schedule, tt.fn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Add() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if got := len(s.Jobs()); got != 2 {
		t.Fatalf("expected 2 registered jobs, got %d", got)
	}
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := New(nil)
	var runs atomic.Int64
	fired := make(chan struct{}, 1)

	err := s.Add("tick", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	s.Start()
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatalf("job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)

	jobs := s.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	if jobs[0].RunCount < 1 || jobs[0].ErrorCount < 1 || jobs[0].LastError != "boom" {
		t.Fatalf("unexpected job state %+v", jobs[0])
	}
}

func TestStopCancelsJobContext(t *testing.T) {
	s := New(nil)
	s.Stop(context.Background())

	select {
	case <-s.ctx.Done():
	default:
		t.Fatalf("expected job context to be cancelled")
	}
}
