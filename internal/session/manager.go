// Package session owns the identity lifecycle: who is using the app and with
// what credential.
//
// The manager is the single writer of the persisted token and the bearer
// credential. Exactly one identity mode (unauthenticated, guest,
// authenticated) holds at any observable point; every transition is applied
// atomically under the state mutex before subscribers are notified.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/resuldeger/vpnapp/internal/apperr"
	"github.com/resuldeger/vpnapp/internal/domain"
	"github.com/resuldeger/vpnapp/internal/metrics"
)

const (
	fallbackRegister = "Registration failed"
	fallbackLogin    = "Login failed"
	minPasswordLen   = 6
)

// Snapshot is an atomic view of the identity state handed to subscribers.
type Snapshot struct {
	Mode      domain.IdentityMode
	User      *domain.User
	IsLoading bool
}

// Manager is the single authority for the authentication/session lifecycle.
type Manager struct {
	api   domain.AuthAPI
	store domain.TokenStore

	mu      sync.Mutex
	mode    domain.IdentityMode
	user    *domain.User
	token   string
	loading bool

	subMu       sync.Mutex
	subscribers []func(Snapshot)
}

// NewManager creates a session manager starting unauthenticated.
func NewManager(api domain.AuthAPI, store domain.TokenStore) *Manager {
	m := &Manager{
		api:   api,
		store: store,
		mode:  domain.ModeUnauthenticated,
	}
	m.publishModeMetric(domain.ModeUnauthenticated)
	return m
}

// Subscribe registers fn to receive a snapshot after every state transition.
// fn is invoked synchronously on the mutating goroutine.
func (m *Manager) Subscribe(fn func(Snapshot)) {
	m.subMu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.subMu.Unlock()
}

// Credential implements domain.CredentialSource. It returns the current
// bearer token, or "" when no authenticated session is held.
func (m *Manager) Credential() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// State returns the current snapshot.
func (m *Manager) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Register creates a new account and enters the authenticated mode.
func (m *Manager) Register(ctx context.Context, email, password string) (*domain.User, error) {
	return m.authenticate(ctx, "register", fallbackRegister, email, password, m.api.Register)
}

// Login authenticates an existing account and enters the authenticated mode.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return m.authenticate(ctx, "login", fallbackLogin, email, password, m.api.Login)
}

type authCall func(ctx context.Context, email, password string) (*domain.AuthResult, error)

func (m *Manager) authenticate(ctx context.Context, op, fallback, email, password string, call authCall) (*domain.User, error) {
	if err := validateCredentials(email, password); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues(op, "invalid").Inc()
		return nil, err
	}

	m.setLoading(true)

	result, err := call(ctx, email, password)
	if err != nil {
		m.setLoading(false)
		metrics.AuthAttemptsTotal.WithLabelValues(op, "failure").Inc()
		return nil, apperr.TransportError(detailOr(err, fallback), err)
	}

	if err := m.store.Save(result.AccessToken); err != nil {
		m.setLoading(false)
		metrics.AuthAttemptsTotal.WithLabelValues(op, "failure").Inc()
		return nil, apperr.InternalError(fallback, err)
	}

	user := &domain.User{
		ID:               result.UserID,
		Email:            email,
		SubscriptionTier: result.SubscriptionTier,
	}

	m.mu.Lock()
	m.mode = domain.ModeAuthenticated
	m.user = user
	m.token = result.AccessToken
	m.loading = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	metrics.AuthAttemptsTotal.WithLabelValues(op, "success").Inc()
	m.publishModeMetric(domain.ModeAuthenticated)
	m.notify(snap)

	slog.Info("Session authenticated", "operation", op, "user_id", user.ID)
	return user, nil
}

// Logout clears the persisted token and credential and forces the
// unauthenticated mode. Persistence failures are logged, never surfaced:
// logout always terminates logged out.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.store.Delete(); err != nil {
		slog.Error("Failed to delete persisted token", "error", err)
	}

	m.mu.Lock()
	m.mode = domain.ModeUnauthenticated
	m.user = nil
	m.token = ""
	m.loading = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publishModeMetric(domain.ModeUnauthenticated)
	m.notify(snap)
	slog.Info("Session logged out")
}

// LoadUser restores the session from the persisted token. Invoked once at
// process start. Any restore failure means "session invalid": the token is
// cleared and the manager stays unauthenticated. Nothing is surfaced.
func (m *Manager) LoadUser(ctx context.Context) {
	m.setLoading(true)

	token, err := m.store.Load()
	if err != nil {
		m.setLoading(false)
		if !errors.Is(err, domain.ErrNoToken) {
			// Unreadable store: treat like an invalid session
			slog.Warn("Failed to load persisted token", "error", err)
			m.invalidateSession(err)
			return
		}
		metrics.AuthAttemptsTotal.WithLabelValues("restore", "no_token").Inc()
		return
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	user, err := m.api.Profile(ctx)
	if err != nil {
		slog.Warn("Session restore failed, logging out", "error", err)
		metrics.AuthAttemptsTotal.WithLabelValues("restore", "failure").Inc()
		m.invalidateSession(err)
		return
	}

	m.mu.Lock()
	m.mode = domain.ModeAuthenticated
	m.user = user
	m.loading = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	metrics.AuthAttemptsTotal.WithLabelValues("restore", "success").Inc()
	m.publishModeMetric(domain.ModeAuthenticated)
	m.notify(snap)
	slog.Info("Session restored", "user_id", user.ID)
}

// RefreshProfile re-fetches the profile and replaces the user record in
// place. Best effort: a no-op without a token, failures logged and swallowed.
func (m *Manager) RefreshProfile(ctx context.Context) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == "" {
		return
	}

	user, err := m.api.Profile(ctx)
	if err != nil {
		slog.Warn("Failed to refresh profile", "error", err)
		return
	}

	m.mu.Lock()
	m.user = user
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

// ContinueAsGuest unconditionally enters guest mode, clearing any in-memory
// user and token. The persisted token is left untouched. Guest mode is
// terminal until the user authenticates.
func (m *Manager) ContinueAsGuest() {
	m.mu.Lock()
	m.mode = domain.ModeGuest
	m.user = nil
	m.token = ""
	m.loading = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publishModeMetric(domain.ModeGuest)
	m.notify(snap)
	slog.Info("Continuing as guest")
}

// invalidateSession converts an external fault into the logged-out state.
func (m *Manager) invalidateSession(cause error) {
	if err := m.store.Delete(); err != nil {
		slog.Error("Failed to delete persisted token", "error", err)
	}

	m.mu.Lock()
	m.mode = domain.ModeUnauthenticated
	m.user = nil
	m.token = ""
	m.loading = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publishModeMetric(domain.ModeUnauthenticated)
	m.notify(snap)
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	m.loading = loading
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

// snapshotLocked builds a snapshot; callers hold m.mu.
func (m *Manager) snapshotLocked() Snapshot {
	var user *domain.User
	if m.user != nil {
		u := *m.user
		user = &u
	}
	return Snapshot{Mode: m.mode, User: user, IsLoading: m.loading}
}

func (m *Manager) notify(snap Snapshot) {
	m.subMu.Lock()
	subs := make([]func(Snapshot), len(m.subscribers))
	copy(subs, m.subscribers)
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (m *Manager) publishModeMetric(mode domain.IdentityMode) {
	for _, candidate := range []domain.IdentityMode{domain.ModeUnauthenticated, domain.ModeGuest, domain.ModeAuthenticated} {
		value := 0.0
		if candidate == mode {
			value = 1.0
		}
		metrics.SessionsActive.WithLabelValues(string(candidate)).Set(value)
	}
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return apperr.ValidationError("Email and password are required")
	}
	if !strings.Contains(email, "@") {
		return apperr.ValidationError("Invalid email address")
	}
	if len(password) < minPasswordLen {
		return apperr.ValidationError("Password must be at least 6 characters")
	}
	return nil
}

// detailOr extracts a renderable backend message from err, falling back to
// the operation's generic message.
func detailOr(err error, fallback string) string {
	var d interface{ APIDetail() string }
	if errors.As(err, &d) {
		if detail := d.APIDetail(); detail != "" {
			return detail
		}
	}
	return fallback
}
