package devserver

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/resuldeger/vpnapp/internal/domain"
)

var (
	errEmailTaken   = errors.New("email already registered")
	errUserNotFound = errors.New("user not found")
)

type account struct {
	ID                    string
	Email                 string
	PasswordHash          []byte
	SubscriptionTier      domain.SubscriptionTier
	SubscriptionExpiresAt *time.Time
	CreatedAt             time.Time
}

// userStore holds accounts in memory, keyed by email and id.
type userStore struct {
	mu      sync.Mutex
	byEmail map[string]*account
	byID    map[string]*account
}

func newUserStore() *userStore {
	return &userStore{
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
	}
}

func (s *userStore) create(email string, passwordHash []byte) (*account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return nil, errEmailTaken
	}

	acc := &account{
		ID:               uuid.NewString(),
		Email:            email,
		PasswordHash:     passwordHash,
		SubscriptionTier: domain.TierFree,
		CreatedAt:        time.Now().UTC(),
	}
	s.byEmail[email] = acc
	s.byID[acc.ID] = acc

	copied := *acc
	return &copied, nil
}

func (s *userStore) getByEmail(email string) (*account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byEmail[email]
	if !ok {
		return nil, errUserNotFound
	}
	copied := *acc
	return &copied, nil
}

func (s *userStore) getByID(id string) (*account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok {
		return nil, errUserNotFound
	}
	copied := *acc
	return &copied, nil
}

// upgrade flips the account to premium for the given duration.
func (s *userStore) upgrade(id string, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok {
		return errUserNotFound
	}
	expiry := time.Now().UTC().Add(duration)
	acc.SubscriptionTier = domain.TierPremium
	acc.SubscriptionExpiresAt = &expiry
	return nil
}

// seedCatalog returns the development server catalog.
func seedCatalog() []domain.Server {
	return []domain.Server{
		{
			ID:             uuid.NewString(),
			Name:           "Turkey - Istanbul",
			Country:        "Turkey",
			CountryCode:    "TR",
			City:           "Istanbul",
			ProxyType:      domain.ProxyHTTPS,
			Host:           "tr-istanbul.nvpn.com",
			Port:           443,
			IsPremium:      false,
			IsOnline:       true,
			LoadPercentage: 45,
			PingMs:         25,
		},
		{
			ID:             uuid.NewString(),
			Name:           "Turkey - Ankara",
			Country:        "Turkey",
			CountryCode:    "TR",
			City:           "Ankara",
			ProxyType:      domain.ProxySOCKS5,
			Host:           "tr-ankara.nvpn.com",
			Port:           1080,
			IsPremium:      true,
			IsOnline:       true,
			LoadPercentage: 20,
			PingMs:         15,
		},
		{
			ID:             uuid.NewString(),
			Name:           "Germany - Berlin",
			Country:        "Germany",
			CountryCode:    "DE",
			City:           "Berlin",
			ProxyType:      domain.ProxyWireGuard,
			Host:           "de-berlin.nvpn.com",
			Port:           51820,
			IsPremium:      true,
			IsOnline:       true,
			LoadPercentage: 35,
			PingMs:         30,
		},
		{
			ID:             uuid.NewString(),
			Name:           "United States - New York",
			Country:        "United States",
			CountryCode:    "US",
			City:           "New York",
			ProxyType:      domain.ProxyOpenVPN,
			Host:           "us-ny.nvpn.com",
			Port:           1194,
			IsPremium:      false,
			IsOnline:       true,
			LoadPercentage: 60,
			PingMs:         80,
		},
	}
}
