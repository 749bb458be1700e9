// Package errors defines the typed error taxonomy shared by the reporter
// pipeline. Kinds distinguish fatal configuration problems, which abort the
// run, from per-week acquisition problems, which the orchestrator isolates.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline error.
type Kind string

const (
	KindInvalidRange         Kind = "invalid_range"
	KindMissingConfig        Kind = "missing_config"
	KindMissingColumns       Kind = "missing_columns"
	KindUIElementNotFound    Kind = "ui_element_not_found"
	KindNavigationTimeout    Kind = "navigation_timeout"
	KindDownloadTimeout      Kind = "download_timeout"
	KindAuthenticationFailed Kind = "authentication_failed"
	KindSyncFailed           Kind = "sync_failed"
	KindExecution            Kind = "execution"
)

// PipelineError carries the error kind, the pipeline step that produced it,
// and an optional wrapped cause.
type PipelineError struct {
	Kind      Kind           `json:"kind"`
	Step      string         `json:"step,omitempty"`
	Message   string         `json:"message"`
	Cause     error          `json:"-"`
	Context   map[string]any `json:"context,omitempty"`
	Retryable bool           `json:"retryable"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Step, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports kind equality so sentinel comparisons via errors.Is work.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return e != nil && e.Kind == t.Kind
}

// New creates a PipelineError with the given kind and message.
func New(kind Kind, step, message string) *PipelineError {
	return &PipelineError{Kind: kind, Step: step, Message: message}
}

// Wrap attaches kind and step information to an underlying cause.
func Wrap(kind Kind, step, message string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Step: step, Message: message, Cause: cause}
}

// Fatal sentinels: these abort the run before any acquisition happens.
var (
	ErrInvalidRange  = New(KindInvalidRange, "", "until must not be earlier than since")
	ErrMissingConfig = New(KindMissingConfig, "", "required configuration is missing")
)

// Per-week errors: caught at the orchestrator boundary, never escalated.

// NewMissingColumns reports a raw export that lacks required columns.
func NewMissingColumns(found []string) *PipelineError {
	return &PipelineError{
		Kind:    KindMissingColumns,
		Step:    "aggregate",
		Message: "raw export missing required columns",
		Context: map[string]any{"found_columns": found},
	}
}

// NewUIElementNotFound reports a selector fallback chain that exhausted all
// candidates for a capability.
func NewUIElementNotFound(capability string, tried int) *PipelineError {
	return &PipelineError{
		Kind:      KindUIElementNotFound,
		Step:      capability,
		Message:   fmt.Sprintf("no locator candidate succeeded (%d tried)", tried),
		Retryable: true,
	}
}

// NewNavigationTimeout reports a page navigation or content wait that exceeded
// its deadline.
func NewNavigationTimeout(url string, cause error) *PipelineError {
	return &PipelineError{
		Kind:      KindNavigationTimeout,
		Step:      "navigate",
		Message:   fmt.Sprintf("navigation to %s timed out", url),
		Cause:     cause,
		Retryable: true,
	}
}

// NewDownloadTimeout reports a download that never completed.
func NewDownloadTimeout(timeout string, cause error) *PipelineError {
	return &PipelineError{
		Kind:      KindDownloadTimeout,
		Step:      "download",
		Message:   fmt.Sprintf("download did not complete within %s", timeout),
		Cause:     cause,
		Retryable: true,
	}
}

// NewAuthenticationFailed reports a login attempt that did not produce an
// authenticated session.
func NewAuthenticationFailed(cause error) *PipelineError {
	return &PipelineError{
		Kind:    KindAuthenticationFailed,
		Step:    "login",
		Message: "could not establish authenticated session",
		Cause:   cause,
	}
}

// NewSyncFailed reports a spreadsheet write error. Local artifacts remain the
// durable record, so this is never escalated past logging.
func NewSyncFailed(tab string, cause error) *PipelineError {
	return &PipelineError{
		Kind:      KindSyncFailed,
		Step:      "sheet_sync",
		Message:   fmt.Sprintf("failed to write summary row to tab %q", tab),
		Cause:     cause,
		Retryable: true,
	}
}

// KindOf returns the kind of err, or KindExecution for foreign errors.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindExecution
}

// IsFatal reports whether err must terminate the run immediately.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindInvalidRange, KindMissingConfig:
		return true
	}
	return false
}

// IsRetryable reports whether retrying the same week could succeed.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
