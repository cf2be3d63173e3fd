// Package errors defines the closed error taxonomy shared by every
// component of the migration core. Every outbound call, handler, and
// orchestrator step maps its outcome onto exactly one Kind before it
// crosses a component boundary.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories. No component may introduce
// a new kind outside this list.
type Kind string

const (
	AuthenticationFailed Kind = "authentication_failed"
	AuthorizationFailed  Kind = "authorization_failed"
	ValidationFailed     Kind = "validation_failed"
	NotFound             Kind = "not_found"
	Throttled            Kind = "throttled"
	NetworkError         Kind = "network_error"
	ServerError          Kind = "server_error"
	Timeout              Kind = "timeout"
	CircuitOpen          Kind = "circuit_open"
	BulkheadTimeout      Kind = "bulkhead_timeout"
	Cancelled            Kind = "cancelled"
	DependencyMissing    Kind = "dependency_missing"
	MappingError         Kind = "mapping_error"
	Unknown              Kind = "unknown"
)

// traits captures the two per-kind flags that govern resilience behavior:
// whether the retry policy may retry an error of this kind, and whether it
// counts toward a circuit breaker's consecutive-failure count.
type traits struct {
	retriable     bool
	countsCircuit bool
	httpStatus    int
	code          string
}

var kindTraits = map[Kind]traits{
	AuthenticationFailed: {false, false, 401, "MIG_1001"},
	AuthorizationFailed:  {false, false, 403, "MIG_1002"},
	ValidationFailed:     {false, false, 400, "MIG_2001"},
	NotFound:             {false, false, 404, "MIG_2002"},
	Throttled:            {true, false, 429, "MIG_3001"},
	NetworkError:         {true, true, 502, "MIG_3002"},
	ServerError:          {true, true, 500, "MIG_3003"},
	Timeout:              {true, true, 504, "MIG_3004"},
	CircuitOpen:          {false, false, 503, "MIG_4001"},
	BulkheadTimeout:      {true, false, 503, "MIG_4002"},
	Cancelled:            {false, false, 499, "MIG_5001"},
	DependencyMissing:    {false, false, 412, "MIG_2003"},
	MappingError:         {false, false, 422, "MIG_2004"},
	Unknown:              {false, true, 500, "MIG_5002"},
}

// Retriable reports whether the retry policy may attempt this kind again.
func (k Kind) Retriable() bool { return kindTraits[k].retriable }

// CountsTowardCircuit reports whether this kind counts as a circuit-breaker
// failure.
func (k Kind) CountsTowardCircuit() bool { return kindTraits[k].countsCircuit }

// HTTPStatus returns the conventional HTTP status associated with this kind,
// used only for logging/metrics labels and any future HTTP transport — the
// taxonomy itself is transport-independent.
func (k Kind) HTTPStatus() int { return kindTraits[k].httpStatus }

// Code returns the machine-readable code string for this kind.
func (k Kind) Code() string { return kindTraits[k].code }

// MigrationError is the categorized error every component returns instead
// of a bare error. It wraps an optional underlying cause while guaranteeing
// a Kind is always attached.
type MigrationError struct {
	Kind    Kind
	Message string
	Details map[string]any
	Cause   error
}

func (e *MigrationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *MigrationError) Unwrap() error { return e.Cause }

// WithDetails attaches structured context (provider ID, operation ID,
// HTTP status, etc.) and returns the receiver for chaining.
func (e *MigrationError) WithDetails(details map[string]any) *MigrationError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// New constructs a MigrationError of the given kind.
func New(kind Kind, message string) *MigrationError {
	return &MigrationError{Kind: kind, Message: message}
}

// Wrap constructs a MigrationError of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *MigrationError {
	return &MigrationError{Kind: kind, Message: message, Cause: cause}
}

// As extracts a *MigrationError from err, if present.
func As(err error) (*MigrationError, bool) {
	var me *MigrationError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// KindOf returns the Kind carried by err, or Unknown if err is not a
// *MigrationError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if me, ok := As(err); ok {
		return me.Kind
	}
	return Unknown
}

// Is reports whether err is a MigrationError of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
