package core

import (
	"context"
	"sort"
	"strings"
)

// ValidationError collects field level problems found at a boundary.
type ValidationError struct {
	FieldErrors map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{FieldErrors: make(map[string]string)}
}

func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// OrNil returns nil when nothing was recorded so callers can return it directly.
func (v *ValidationError) OrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	if !v.HasErrors() {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for f := range v.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v.FieldErrors[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ErrorReporter forwards unexpected errors to an error tracking backend.
type ErrorReporter interface {
	Report(ctx context.Context, err error, keysAndValues ...interface{})
}

type logReporter struct {
	logger Logger
}

// NewLogReporter reports errors through the logger. It is the default when no
// tracking backend is configured.
func NewLogReporter(logger Logger) ErrorReporter {
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &logReporter{logger: logger.With("component", "ErrorReporter")}
}

func (r *logReporter) Report(ctx context.Context, err error, kv ...interface{}) {
	if err == nil {
		return
	}
	r.logger.Error("reported error", append([]interface{}{"error", err}, kv...)...)
}
