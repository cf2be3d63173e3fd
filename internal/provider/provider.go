// Package provider defines the ProviderAdapter contract external
// collaborators implement, plus the operation-context plumbing the
// executor threads through an operation plan. Concrete adapters (wire
// formats, authentication flows) are out of scope for this repository;
// only the contract and a test double live here.
package provider

import (
	"context"
	"sync"
	"time"

	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
	"github.com/heymumford/migrationcore/internal/contract"
)

// Capabilities advertises what an adapter can do, replacing inheritance-
// based dynamic dispatch with a capability-set interface.
type Capabilities struct {
	MaySource             bool
	MayTarget              bool
	SupportsAttachments   bool
	SupportsSteps         bool
	SupportsHierarchy     bool
	SupportsCustomFields  bool
	SupportsExecutions    bool
}

// ConnectionStatus is the result of test_connection.
type ConnectionStatus struct {
	Connected bool
	Err       *migerrors.MigrationError
}

// Adapter is the contract every provider integration implements. Every
// data operation goes through Invoke with a context.Context and an argument
// map and returns either a payload or a categorized error; adapters must
// not retry internally.
type Adapter interface {
	ID() string
	Name() string
	Version() string
	Capabilities() Capabilities

	TestConnection(ctx context.Context) ConnectionStatus
	GetAPIContract() []contract.OperationContract

	// Invoke dispatches a named data operation (get_projects, create_test_case,
	// upload_attachment, ...) with arbitrary arguments and returns its
	// payload or a categorized error. The executor's handler registry calls
	// this through the resilient caller, never directly.
	Invoke(ctx context.Context, opID string, args map[string]any) (any, error)
}

// Context is the mapping threaded through one run's executor: produced
// results by operation identifier, input parameters, and provider handles.
// Cancellation is not stored here; it travels as the context.Context each
// handler receives. Results are single-writer-per-operation-id,
// multi-reader, as the concurrency model requires.
type Context struct {
	mu       sync.RWMutex
	results  map[string]Outcome
	params   map[string]any
	Source   Adapter
	Target   Adapter
	RunID    string
}

// NewContext constructs an empty operation Context for one run.
func NewContext(runID string, source, target Adapter) *Context {
	return &Context{
		results: make(map[string]Outcome),
		params:  make(map[string]any),
		Source:  source,
		Target:  target,
		RunID:   runID,
	}
}

// SetParam stores an input parameter readable by name from any operation.
func (c *Context) SetParam(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params[name] = value
}

// Param reads an input parameter.
func (c *Context) Param(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.params[name]
	return v, ok
}

// Publish records opID's terminal outcome. Only the operation's own handler
// may call this for its own identifier; the executor enforces single-writer
// discipline by construction (one goroutine per operation).
func (c *Context) Publish(opID string, outcome Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[opID] = outcome
}

// Result reads opID's result data, returning a dependency_missing error if
// the operation never completed successfully — a contract violation per
// the data model's context invariants.
func (c *Context) Result(opID string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	outcome, ok := c.results[opID]
	if !ok || outcome.Status != StatusSuccess {
		return nil, migerrors.New(migerrors.DependencyMissing, "missing result for operation "+opID)
	}
	return outcome.Data, nil
}

// Outcome reads opID's full recorded outcome, if any.
func (c *Context) Outcome(opID string) (Outcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	outcome, ok := c.results[opID]
	return outcome, ok
}

// TerminalStatus is the closed set of per-operation terminal states.
type TerminalStatus string

const (
	StatusSuccess   TerminalStatus = "success"
	StatusFailure   TerminalStatus = "failure"
	StatusSkipped   TerminalStatus = "skipped"
	StatusCancelled TerminalStatus = "cancelled"
)

// Outcome is one operation's recorded result.
type Outcome struct {
	OperationID string
	Status      TerminalStatus
	Data        any
	Err         *migerrors.MigrationError
	StartedAt   time.Time
	EndedAt     time.Time
	RetryCount  int
}
