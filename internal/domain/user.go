package domain

import (
	"context"
	"time"
)

// SubscriptionTier is the billing tier of an account.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
)

// User is the profile of an authenticated account. The record is immutable;
// profile refreshes and logins replace the whole value, never patch fields.
type User struct {
	ID                    string           `json:"id"`
	Email                 string           `json:"email"`
	SubscriptionTier      SubscriptionTier `json:"subscription_tier"`
	SubscriptionExpiresAt *time.Time       `json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time        `json:"created_at,omitzero"`
}

// IsPremium reports whether the account is on the premium tier.
func (u User) IsPremium() bool {
	return u.SubscriptionTier == TierPremium
}

// IdentityMode is the authentication mode of the client. Exactly one mode
// holds at any observable point.
type IdentityMode string

const (
	ModeUnauthenticated IdentityMode = "unauthenticated"
	ModeGuest           IdentityMode = "guest"
	ModeAuthenticated   IdentityMode = "authenticated"
)

// AuthResult is what the backend returns from register and login.
type AuthResult struct {
	AccessToken      string           `json:"access_token"`
	TokenType        string           `json:"token_type"`
	UserID           string           `json:"user_id"`
	SubscriptionTier SubscriptionTier `json:"subscription_tier"`
}

// AuthAPI is the backend authentication surface consumed by the session
// manager. Register and Login are anonymous; Profile carries the bearer
// credential the client holds.
type AuthAPI interface {
	Register(ctx context.Context, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Profile(ctx context.Context) (*User, error)
	ForgotPassword(ctx context.Context, email string) error
}

// TokenStore persists the bearer token across process restarts under a fixed
// key. Save overwrites, Load returns ErrNoToken when nothing is stored.
type TokenStore interface {
	Save(token string) error
	Load() (string, error)
	Delete() error
}

// CredentialSource yields the bearer credential to attach to authenticated
// requests. An empty string means the request goes out anonymous. The session
// manager is the only implementer; the catalog consumer never sees the token
// itself.
type CredentialSource interface {
	Credential() string
}
