// Package errdefs defines the closed error taxonomy used across the
// application core. Every failure that crosses a component boundary is an
// *Error with one of the nine kinds below; Normalize guarantees that no raw
// error escapes a guarded operation unclassified.
package errdefs

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the machine-readable error code for one taxonomy entry.
type Kind string

const (
	// InvalidData means the cached dataset is missing or malformed.
	InvalidData Kind = "INVALID_DATA"

	// ValidationFailed means caller input failed shape or type checks.
	ValidationFailed Kind = "VALIDATION_FAILED"

	// ResourceNotFound means a named entity is absent from the dataset.
	ResourceNotFound Kind = "RESOURCE_NOT_FOUND"

	// ServiceUnavailable means a circuit breaker is rejecting calls.
	ServiceUnavailable Kind = "SERVICE_UNAVAILABLE"

	// ServiceTimeout means an operation exceeded its allotted time.
	ServiceTimeout Kind = "SERVICE_TIMEOUT"

	// ServiceError means an uncaught failure inside a guarded operation.
	ServiceError Kind = "SERVICE_ERROR"

	// ConfigurationError means the runtime configuration is invalid.
	ConfigurationError Kind = "CONFIGURATION_ERROR"

	// ProtocolError means a malformed request at the boundary.
	ProtocolError Kind = "PROTOCOL_ERROR"

	// InternalError is the catch-all for unclassified failures.
	InternalError Kind = "INTERNAL_ERROR"
)

// Severity is derived from the kind and used only to choose a log level.
// It never changes retry behavior.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// kindDefaults maps each kind to its fixed retryability and external status.
var kindDefaults = map[Kind]struct {
	retryable bool
	status    int
	severity  Severity
}{
	InvalidData:        {false, 400, SeverityMedium},
	ValidationFailed:   {false, 400, SeverityMedium},
	ResourceNotFound:   {false, 404, SeverityLow},
	ServiceUnavailable: {true, 503, SeverityHigh},
	ServiceTimeout:     {true, 408, SeverityHigh},
	ServiceError:       {false, 500, SeverityCritical},
	ConfigurationError: {false, 500, SeverityCritical},
	ProtocolError:      {false, 400, SeverityMedium},
	InternalError:      {false, 500, SeverityCritical},
}

// Error is the single error type the core propagates. The zero value is not
// usable; construct through New or the kind helpers.
type Error struct {
	Kind        Kind
	Message     string
	Suggestions []string
	Context     map[string]any
	Cause       error
	Timestamp   time.Time
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	if _, ok := kindDefaults[kind]; !ok {
		kind = InternalError
	}
	return &Error{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether a caller may reasonably retry the operation.
func (e *Error) Retryable() bool {
	return kindDefaults[e.Kind].retryable
}

// Status is the numeric status code used when the error surfaces externally.
func (e *Error) Status() int {
	return kindDefaults[e.Kind].status
}

// Severity returns the log-level severity derived from the kind.
func (e *Error) Severity() Severity {
	return kindDefaults[e.Kind].severity
}

// WithSuggestions appends actionable suggestions, in order.
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithContext attaches one structured context value.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Payload is the normalized external shape of an error, handed to the
// protocol boundary verbatim.
type Payload struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
	Retryable   bool     `json:"retryable"`
	Timestamp   string   `json:"timestamp"`
}

// ToPayload converts the error to its external representation.
func (e *Error) ToPayload() Payload {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return Payload{
		Code:        string(e.Kind),
		Message:     e.Message,
		Suggestions: e.Suggestions,
		Retryable:   e.Retryable(),
		Timestamp:   ts.UTC().Format(time.RFC3339),
	}
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// AsError extracts an *Error from err, or nil when err is not classified.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Normalize guarantees a classified error: an existing *Error passes through
// with component/method context attached; anything else is wrapped as a
// ServiceError. A nil err returns nil.
func Normalize(component, method string, err error) *Error {
	if err == nil {
		return nil
	}

	e := AsError(err)
	if e == nil {
		e = New(ServiceError, err.Error()).WithCause(err)
	}

	if component != "" {
		e.WithContext("component", component)
	}
	if method != "" {
		e.WithContext("method", method)
	}
	return e
}
