package provider

import (
	"context"
	"sync"

	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
	"github.com/heymumford/migrationcore/internal/contract"
)

// MockAdapter is an in-memory, error-injectable Adapter for tests.
// ErrorOnNextCall is consumed and cleared by the next Invoke, Reset()
// clears all injected state, and a compile-time interface assertion
// documents the intent.
type MockAdapter struct {
	mu sync.Mutex

	id           string
	name         string
	version      string
	capabilities Capabilities
	contracts    []contract.OperationContract

	// Responses maps an opID to the payload Invoke returns on success.
	Responses map[string]any

	// ErrorOnNextCall, if set, is returned by the next Invoke for the named
	// operation and then cleared.
	ErrorOnNextCall map[string]*migerrors.MigrationError

	// Calls records every Invoke call in order, for assertions.
	Calls []InvokeCall
}

// InvokeCall records one Invoke invocation.
type InvokeCall struct {
	OpID string
	Args map[string]any
}

var _ Adapter = (*MockAdapter)(nil)

// NewMockAdapter constructs a MockAdapter advertising the given contracts.
func NewMockAdapter(id, name, version string, caps Capabilities, contracts []contract.OperationContract) *MockAdapter {
	return &MockAdapter{
		id:              id,
		name:            name,
		version:         version,
		capabilities:    caps,
		contracts:       contracts,
		Responses:       make(map[string]any),
		ErrorOnNextCall: make(map[string]*migerrors.MigrationError),
	}
}

func (m *MockAdapter) ID() string               { return m.id }
func (m *MockAdapter) Name() string             { return m.name }
func (m *MockAdapter) Version() string          { return m.version }
func (m *MockAdapter) Capabilities() Capabilities { return m.capabilities }

func (m *MockAdapter) TestConnection(ctx context.Context) ConnectionStatus {
	return ConnectionStatus{Connected: true}
}

func (m *MockAdapter) GetAPIContract() []contract.OperationContract {
	return m.contracts
}

// Invoke returns the injected error for opID if one was queued via
// ErrorOnNextCall (consuming it), otherwise the configured Responses[opID]
// payload (nil if none was set).
func (m *MockAdapter) Invoke(ctx context.Context, opID string, args map[string]any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, InvokeCall{OpID: opID, Args: args})

	if err := m.checkErrorLocked(opID); err != nil {
		return nil, err
	}
	return m.Responses[opID], nil
}

func (m *MockAdapter) checkErrorLocked(opID string) error {
	err, ok := m.ErrorOnNextCall[opID]
	if !ok || err == nil {
		return nil
	}
	delete(m.ErrorOnNextCall, opID)
	return err
}

// Reset clears recorded calls and injected errors, leaving Responses intact.
func (m *MockAdapter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.ErrorOnNextCall = make(map[string]*migerrors.MigrationError)
}
