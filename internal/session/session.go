// Package session holds per-provider session state and credential
// lifecycle. Concurrent refreshes are coordinated with
// golang.org/x/sync/singleflight, grounded directly on
// giantswarm-muster's OAuth client, which deduplicates concurrent
// metadata fetches the same way (c.metadataGroup.Do(issuer, ...)).
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
	"github.com/heymumford/migrationcore/infrastructure/logging"
)

// State is a session's lifecycle position.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateValid         State = "valid"
	StateRefreshing    State = "refreshing"
	StateInvalid       State = "invalid"
)

// CredentialKind identifies which grant shape a provider's credential uses.
type CredentialKind string

const (
	CredentialBearer           CredentialKind = "bearer"
	CredentialPasswordGrant    CredentialKind = "password_grant"
	CredentialClientCredentials CredentialKind = "client_credentials"
	CredentialCustomCaptured   CredentialKind = "custom_captured"
)

// Credential is the opaque input the Session Manager exchanges for a
// token. Never logged in full; String() redacts secret material.
type Credential struct {
	Kind         CredentialKind
	BearerToken  string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	// Captured carries a pre-established session blob (e.g. cookies)
	// obtained out-of-band for providers with no programmatic grant flow.
	Captured map[string]string
}

func (c Credential) String() string {
	return fmt.Sprintf("Credential{Kind:%s}", c.Kind)
}

// Token is a read-only view of a provider's current session; all other
// components hold only this view, never the Session owned by the manager.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	State       State
}

func (t Token) String() string {
	return "Token{" + logging.Redacted + "}"
}

// session is the manager's private, mutable record. Never exposed outside
// this package.
type session struct {
	mu           sync.RWMutex
	credential   Credential
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	state        State
	lastUsed     time.Time
}

// Exchanger performs the actual grant exchange or refresh against a
// provider; it is supplied by the provider adapter since only the adapter
// knows the wire format. The Session Manager never constructs HTTP requests
// itself — it only orchestrates when and how often Exchanger runs.
type Exchanger interface {
	Exchange(ctx context.Context, cred Credential) (accessToken, refreshToken string, expiresAt time.Time, err error)
	Refresh(ctx context.Context, refreshToken string) (accessToken, refreshToken2 string, expiresAt time.Time, err error)
}

// RefreshWindow is how far ahead of expiry a token is proactively refreshed.
const RefreshWindow = 60 * time.Second

// Manager holds session state for every registered provider.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*session
	exchanger map[string]Exchanger
	group     singleflight.Group
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{
		sessions:  make(map[string]*session),
		exchanger: make(map[string]Exchanger),
	}
}

// Register associates credential and exchanger with providerID. The
// session starts uninitialized; the first GetToken call performs the
// initial exchange.
func (m *Manager) Register(providerID string, cred Credential, exch Exchanger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[providerID] = &session{credential: cred, state: StateUninitialized}
	m.exchanger[providerID] = exch
}

// GetToken returns a valid token for providerID, refreshing transparently
// when within RefreshWindow of expiry or when never initialized. Concurrent
// callers for the same provider observe a single refresh in flight.
func (m *Manager) GetToken(ctx context.Context, providerID string) (Token, error) {
	m.mu.Lock()
	sess, ok := m.sessions[providerID]
	m.mu.Unlock()
	if !ok {
		return Token{}, migerrors.New(migerrors.AuthenticationFailed, "no session registered for provider "+providerID)
	}

	sess.mu.RLock()
	fresh := sess.state == StateValid && time.Until(sess.expiresAt) > RefreshWindow
	sess.mu.RUnlock()
	if fresh {
		sess.mu.Lock()
		sess.lastUsed = time.Now()
		tok := Token{AccessToken: sess.accessToken, ExpiresAt: sess.expiresAt, State: sess.state}
		sess.mu.Unlock()
		return tok, nil
	}

	result, err, _ := m.group.Do(providerID, func() (any, error) {
		return m.refresh(ctx, providerID, sess)
	})
	if err != nil {
		return Token{}, err
	}
	return result.(Token), nil
}

// Invalidate forces the next GetToken call to perform a fresh exchange.
func (m *Manager) Invalidate(providerID string) {
	m.mu.Lock()
	sess, ok := m.sessions[providerID]
	m.mu.Unlock()
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.state = StateInvalid
	sess.accessToken = ""
	sess.refreshToken = ""
	sess.mu.Unlock()
}

// ForceReauth re-exchanges credentials immediately, used after a 401
// response per the reauth-and-replay-once rule. The resilient caller is
// responsible for deciding when to call this and for replaying exactly
// once.
func (m *Manager) ForceReauth(ctx context.Context, providerID string) (Token, error) {
	m.mu.Lock()
	sess, ok := m.sessions[providerID]
	m.mu.Unlock()
	if !ok {
		return Token{}, migerrors.New(migerrors.AuthenticationFailed, "no session registered for provider "+providerID)
	}
	sess.mu.Lock()
	sess.state = StateInvalid
	sess.refreshToken = ""
	sess.mu.Unlock()

	result, err, _ := m.group.Do(providerID, func() (any, error) {
		return m.refresh(ctx, providerID, sess)
	})
	if err != nil {
		return Token{}, err
	}
	return result.(Token), nil
}

func (m *Manager) refresh(ctx context.Context, providerID string, sess *session) (Token, error) {
	sess.mu.Lock()
	// Double-check under the singleflight lock: another goroutine may have
	// refreshed while we queued for the group.
	if sess.state == StateValid && time.Until(sess.expiresAt) > RefreshWindow {
		tok := Token{AccessToken: sess.accessToken, ExpiresAt: sess.expiresAt, State: sess.state}
		sess.mu.Unlock()
		return tok, nil
	}
	cred := sess.credential
	refreshToken := sess.refreshToken
	wasInitialized := sess.state != StateUninitialized
	sess.state = StateRefreshing
	sess.mu.Unlock()

	m.mu.Lock()
	exch := m.exchanger[providerID]
	m.mu.Unlock()
	if exch == nil {
		return Token{}, migerrors.New(migerrors.AuthenticationFailed, "no exchanger registered for provider "+providerID)
	}

	var access, newRefresh string
	var expiresAt time.Time
	var err error
	if wasInitialized && refreshToken != "" {
		access, newRefresh, expiresAt, err = exch.Refresh(ctx, refreshToken)
	} else {
		access, newRefresh, expiresAt, err = exch.Exchange(ctx, cred)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err != nil {
		sess.state = StateInvalid
		return Token{}, migerrors.Wrap(migerrors.AuthenticationFailed, "session refresh failed for "+providerID, err)
	}
	if expiresAt.IsZero() {
		if parsed, jwtErr := ExpiresAtFromJWT(access); jwtErr == nil {
			expiresAt = parsed
		}
	}
	sess.accessToken = access
	sess.refreshToken = newRefresh
	sess.expiresAt = expiresAt
	sess.state = StateValid
	sess.lastUsed = time.Now()
	return Token{AccessToken: sess.accessToken, ExpiresAt: sess.expiresAt, State: sess.state}, nil
}

// ReapIdle drops session state for providers whose last use predates the
// cutoff, releasing credential material for long-running processes that
// have moved on to other providers. Intended to run on a periodic tick
// (internal/orchestrator schedules this via robfig/cron/v3).
func (m *Manager) ReapIdle(cutoff time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reaped []string
	for providerID, sess := range m.sessions {
		sess.mu.RLock()
		idle := sess.lastUsed.Before(cutoff) && sess.state != StateUninitialized
		sess.mu.RUnlock()
		if idle {
			sess.mu.Lock()
			sess.state = StateInvalid
			sess.accessToken = ""
			sess.refreshToken = ""
			sess.mu.Unlock()
			reaped = append(reaped, providerID)
		}
	}
	return reaped
}
