package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resuldeger/vpnapp/internal/apperr"
	"github.com/resuldeger/vpnapp/internal/domain"
)

// --- Mock implementations ---

type mockAuthAPI struct {
	registerFn func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	profileFn  func(ctx context.Context) (*domain.User, error)

	registerCalls int
	loginCalls    int
	profileCalls  int
}

func (m *mockAuthAPI) Register(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	m.registerCalls++
	if m.registerFn != nil {
		return m.registerFn(ctx, email, password)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAuthAPI) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	m.loginCalls++
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAuthAPI) Profile(ctx context.Context) (*domain.User, error) {
	m.profileCalls++
	if m.profileFn != nil {
		return m.profileFn(ctx)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAuthAPI) ForgotPassword(ctx context.Context, email string) error {
	return nil
}

type mockTokenStore struct {
	saveFn   func(token string) error
	loadFn   func() (string, error)
	deleteFn func() error

	deleteCalls int
}

func (m *mockTokenStore) Save(token string) error {
	if m.saveFn != nil {
		return m.saveFn(token)
	}
	return nil
}

func (m *mockTokenStore) Load() (string, error) {
	if m.loadFn != nil {
		return m.loadFn()
	}
	return "", domain.ErrNoToken
}

func (m *mockTokenStore) Delete() error {
	m.deleteCalls++
	if m.deleteFn != nil {
		return m.deleteFn()
	}
	return nil
}

// backendError mimics the API client's error type without depending on it.
type backendError struct {
	detail string
}

func (e *backendError) Error() string     { return "api error: " + e.detail }
func (e *backendError) APIDetail() string { return e.detail }

func authOK(token, userID string, tier domain.SubscriptionTier) func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	return func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
		return &domain.AuthResult{AccessToken: token, TokenType: "bearer", UserID: userID, SubscriptionTier: tier}, nil
	}
}

// --- Tests ---

func TestLoginSuccess(t *testing.T) {
	api := &mockAuthAPI{loginFn: authOK("t1", "u1", domain.TierFree)}
	var saved string
	store := &mockTokenStore{saveFn: func(token string) error {
		saved = token
		return nil
	}}
	m := NewManager(api, store)

	user, err := m.Login(context.Background(), "u@x.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "u@x.com", user.Email)
	assert.Equal(t, domain.TierFree, user.SubscriptionTier)
	assert.Equal(t, "t1", saved)
	assert.Equal(t, "t1", m.Credential())

	snap := m.State()
	assert.Equal(t, domain.ModeAuthenticated, snap.Mode)
	assert.False(t, snap.IsLoading)
}

func TestRegisterSuccess(t *testing.T) {
	api := &mockAuthAPI{registerFn: authOK("t2", "u2", domain.TierFree)}
	store := &mockTokenStore{}
	m := NewManager(api, store)

	user, err := m.Register(context.Background(), "new@x.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "u2", user.ID)
	assert.Equal(t, domain.ModeAuthenticated, m.State().Mode)
}

func TestLoginBackendFailureLeavesStateUnchanged(t *testing.T) {
	api := &mockAuthAPI{loginFn: func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
		return nil, &backendError{detail: "Invalid email or password"}
	}}
	m := NewManager(api, &mockTokenStore{})

	_, err := m.Login(context.Background(), "u@x.com", "wrongpw")
	require.Error(t, err)

	assert.Equal(t, apperr.TypeTransport, apperr.TypeOf(err))
	assert.Equal(t, "Invalid email or password", apperr.MessageOf(err))

	snap := m.State()
	assert.Equal(t, domain.ModeUnauthenticated, snap.Mode)
	assert.Nil(t, snap.User)
	assert.False(t, snap.IsLoading)
	assert.Empty(t, m.Credential())
}

func TestLoginFallbackMessageWithoutBackendDetail(t *testing.T) {
	api := &mockAuthAPI{loginFn: func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
		return nil, errors.New("connection refused")
	}}
	m := NewManager(api, &mockTokenStore{})

	_, err := m.Login(context.Background(), "u@x.com", "secret")
	require.Error(t, err)
	assert.Equal(t, "Login failed", apperr.MessageOf(err))

	_, err = m.Register(context.Background(), "u@x.com", "secret")
	require.Error(t, err)
	assert.Equal(t, "Registration failed", apperr.MessageOf(err))
}

func TestValidationRejectsBeforeNetworkCall(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "secret"},
		{"empty password", "u@x.com", ""},
		{"malformed email", "nonsense", "secret"},
		{"short password", "u@x.com", "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAuthAPI{}
			m := NewManager(api, &mockTokenStore{})

			_, err := m.Login(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, apperr.TypeValidation, apperr.TypeOf(err))
			assert.Zero(t, api.loginCalls)
			assert.Equal(t, domain.ModeUnauthenticated, m.State().Mode)
		})
	}
}

func TestPersistFailureLeavesStateUnchanged(t *testing.T) {
	api := &mockAuthAPI{loginFn: authOK("t1", "u1", domain.TierFree)}
	store := &mockTokenStore{saveFn: func(string) error {
		return errors.New("disk full")
	}}
	m := NewManager(api, store)

	_, err := m.Login(context.Background(), "u@x.com", "secret")
	require.Error(t, err)

	assert.Equal(t, domain.ModeUnauthenticated, m.State().Mode)
	assert.Empty(t, m.Credential())
}

func TestLoadUserWithoutTokenMakesNoNetworkCall(t *testing.T) {
	api := &mockAuthAPI{}
	m := NewManager(api, &mockTokenStore{})

	// Restore idempotence: twice in a row, no profile fetch either time.
	m.LoadUser(context.Background())
	m.LoadUser(context.Background())

	assert.Zero(t, api.profileCalls)
	snap := m.State()
	assert.Equal(t, domain.ModeUnauthenticated, snap.Mode)
	assert.False(t, snap.IsLoading)
}

func TestLoadUserRestoresSession(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "u@x.com", SubscriptionTier: domain.TierPremium}
	api := &mockAuthAPI{profileFn: func(ctx context.Context) (*domain.User, error) {
		return user, nil
	}}
	store := &mockTokenStore{loadFn: func() (string, error) { return "t1", nil }}
	m := NewManager(api, store)

	m.LoadUser(context.Background())

	snap := m.State()
	assert.Equal(t, domain.ModeAuthenticated, snap.Mode)
	assert.Equal(t, "u1", snap.User.ID)
	assert.Equal(t, "t1", m.Credential())
}

func TestLoadUserFailureClearsPersistedToken(t *testing.T) {
	api := &mockAuthAPI{profileFn: func(ctx context.Context) (*domain.User, error) {
		return nil, &backendError{detail: "Invalid token"}
	}}
	store := &mockTokenStore{loadFn: func() (string, error) { return "stale", nil }}
	m := NewManager(api, store)

	m.LoadUser(context.Background())

	assert.Equal(t, 1, store.deleteCalls)
	snap := m.State()
	assert.Equal(t, domain.ModeUnauthenticated, snap.Mode)
	assert.Nil(t, snap.User)
	assert.False(t, snap.IsLoading)
	assert.Empty(t, m.Credential())
}

func TestLogoutAlwaysTerminatesLoggedOut(t *testing.T) {
	api := &mockAuthAPI{loginFn: authOK("t1", "u1", domain.TierFree)}
	store := &mockTokenStore{deleteFn: func() error {
		return errors.New("persistence unavailable")
	}}
	m := NewManager(api, store)

	_, err := m.Login(context.Background(), "u@x.com", "secret")
	require.NoError(t, err)

	m.Logout(context.Background())

	snap := m.State()
	assert.Equal(t, domain.ModeUnauthenticated, snap.Mode)
	assert.Nil(t, snap.User)
	assert.Empty(t, m.Credential())
}

func TestContinueAsGuestClearsInMemoryCredential(t *testing.T) {
	api := &mockAuthAPI{loginFn: authOK("t1", "u1", domain.TierFree)}
	m := NewManager(api, &mockTokenStore{})

	_, err := m.Login(context.Background(), "u@x.com", "secret")
	require.NoError(t, err)

	m.ContinueAsGuest()

	snap := m.State()
	assert.Equal(t, domain.ModeGuest, snap.Mode)
	assert.Nil(t, snap.User)
	assert.Empty(t, m.Credential())
}

func TestGuestToAuthenticatedClearsGuestAtomically(t *testing.T) {
	api := &mockAuthAPI{loginFn: authOK("t1", "u1", domain.TierFree)}
	m := NewManager(api, &mockTokenStore{})

	m.ContinueAsGuest()

	var modes []domain.IdentityMode
	m.Subscribe(func(snap Snapshot) {
		modes = append(modes, snap.Mode)
	})

	_, err := m.Login(context.Background(), "u@x.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, domain.ModeAuthenticated, m.State().Mode)
	// Exactly one mode holds in every observed snapshot; the switch from
	// guest to authenticated happens in a single transition.
	for _, mode := range modes {
		assert.Contains(t, []domain.IdentityMode{domain.ModeGuest, domain.ModeAuthenticated}, mode)
	}
}

func TestRefreshProfileWithoutTokenIsNoOp(t *testing.T) {
	api := &mockAuthAPI{}
	m := NewManager(api, &mockTokenStore{})

	m.RefreshProfile(context.Background())

	assert.Zero(t, api.profileCalls)
}

func TestRefreshProfileReplacesUserRecord(t *testing.T) {
	refreshed := &domain.User{ID: "u1", Email: "u@x.com", SubscriptionTier: domain.TierPremium}
	api := &mockAuthAPI{
		loginFn: authOK("t1", "u1", domain.TierFree),
		profileFn: func(ctx context.Context) (*domain.User, error) {
			return refreshed, nil
		},
	}
	m := NewManager(api, &mockTokenStore{})

	_, err := m.Login(context.Background(), "u@x.com", "secret")
	require.NoError(t, err)

	m.RefreshProfile(context.Background())

	snap := m.State()
	assert.Equal(t, domain.ModeAuthenticated, snap.Mode)
	assert.Equal(t, domain.TierPremium, snap.User.SubscriptionTier)
}

func TestRefreshProfileFailureIsSwallowed(t *testing.T) {
	api := &mockAuthAPI{
		loginFn: authOK("t1", "u1", domain.TierFree),
		profileFn: func(ctx context.Context) (*domain.User, error) {
			return nil, errors.New("backend down")
		},
	}
	m := NewManager(api, &mockTokenStore{})

	_, err := m.Login(context.Background(), "u@x.com", "secret")
	require.NoError(t, err)

	m.RefreshProfile(context.Background())

	snap := m.State()
	assert.Equal(t, domain.ModeAuthenticated, snap.Mode)
	assert.Equal(t, domain.TierFree, snap.User.SubscriptionTier)
	assert.Equal(t, "t1", m.Credential())
}

func TestSubscribersSeeAtomicSnapshots(t *testing.T) {
	api := &mockAuthAPI{loginFn: authOK("t1", "u1", domain.TierFree)}
	m := NewManager(api, &mockTokenStore{})

	var snapshots []Snapshot
	m.Subscribe(func(snap Snapshot) {
		snapshots = append(snapshots, snap)
	})

	_, err := m.Login(context.Background(), "u@x.com", "secret")
	require.NoError(t, err)

	require.NotEmpty(t, snapshots)
	for _, snap := range snapshots {
		if snap.Mode == domain.ModeAuthenticated {
			assert.NotNil(t, snap.User)
			assert.False(t, snap.IsLoading)
		} else {
			assert.Nil(t, snap.User)
		}
	}
}
