package repo

import (
	"fmt"
	"strings"
)

// Checkpoint operations reported by CheckpointError.
const (
	OpOpen = "open"
	OpSave = "save"
	OpLoad = "load"
)

// CheckpointError reports a failed checkpoint operation. Kind names the snapshot
// (history or ledger) and is empty for database-level failures.
type CheckpointError struct {
	Op    string
	Kind  string
	Stage string
	Err   error
}

func (e *CheckpointError) Error() string {
	parts := []string{"checkpoint", e.Op}
	if e.Kind != "" {
		parts = append(parts, e.Kind)
	}
	msg := strings.Join(parts, " ")
	if e.Stage != "" {
		msg += ": " + e.Stage
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CheckpointError) Unwrap() error {
	return e.Err
}

func openError(stage string, err error) error {
	return &CheckpointError{Op: OpOpen, Stage: stage, Err: err}
}
