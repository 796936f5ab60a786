package models

import (
	"strconv"
	"strings"
	"time"
)

// ErrorType is the routing key used by the strategy selector and healing registry.
// The set is open: unknown values are recorded and reported like any other.
type ErrorType string

const (
	ErrorTableNotFound      ErrorType = "TABLE_NOT_FOUND"
	ErrorAccessDenied       ErrorType = "ACCESS_DENIED"
	ErrorSyntax             ErrorType = "SYNTAX_ERROR"
	ErrorConnection         ErrorType = "CONNECTION_ERROR"
	ErrorTooManyConnections ErrorType = "TOO_MANY_CONNECTIONS"
	ErrorDiskFull           ErrorType = "DISK_FULL"
	ErrorDeadlock           ErrorType = "DEADLOCK"
	ErrorLockTimeout        ErrorType = "LOCK_TIMEOUT"
	ErrorTimeout            ErrorType = "TIMEOUT"
	ErrorSlowQuery          ErrorType = "SLOW_QUERY"
	ErrorColumnNotFound     ErrorType = "COLUMN_NOT_FOUND"
	ErrorDuplicateKey       ErrorType = "DUPLICATE_KEY"
	ErrorFunction           ErrorType = "FUNCTION_ERROR"
	ErrorGeneral            ErrorType = "GENERAL"
	ErrorUnknown            ErrorType = "UNKNOWN"
)

// Context keys understood by FlagsFromContext.
const (
	ContextMaintenanceWindow = "maintenance_window"
	ContextAutoFixEnabled    = "auto_fix_enabled"
)

// ErrorRecord is one observed database failure.
type ErrorRecord struct {
	Type       ErrorType         `json:"error_type"`
	Code       string            `json:"error_code,omitempty"`
	Message    string            `json:"message"`
	Query      string            `json:"query,omitempty"`
	Table      string            `json:"table,omitempty"`
	Context    map[string]string `json:"context,omitempty"`
	ObservedAt time.Time         `json:"observed_at"`
}

// Clone returns a copy that shares no mutable state with r.
func (r ErrorRecord) Clone() ErrorRecord {
	out := r
	if r.Context != nil {
		out.Context = make(map[string]string, len(r.Context))
		for k, v := range r.Context {
			out.Context[k] = v
		}
	}
	return out
}

// Flags carries the environmental switches consulted by strategy selection.
type Flags struct {
	MaintenanceWindow bool
	AutoFixEnabled    bool
}

// FlagsFromContext overlays flags found in a record's context on top of defaults.
// Unparseable values leave the default in place.
func FlagsFromContext(ctx map[string]string, defaults Flags) Flags {
	flags := defaults
	if v, ok := ctx[ContextMaintenanceWindow]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			flags.MaintenanceWindow = b
		}
	}
	if v, ok := ctx[ContextAutoFixEnabled]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			flags.AutoFixEnabled = b
		}
	}
	return flags
}

// Signature is the fixed-width fingerprint of an error's structural shape.
type Signature string
