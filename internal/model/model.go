// Package model defines domain entities shared by the client, services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

func init() {
	// The portfolio API exchanges money as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// UserProfile is the public identity mirrored to the credential store.
type UserProfile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session is the authenticated identity held in memory by the session manager.
// User is non-nil iff both tokens are set.
type Session struct {
	User         *UserProfile
	AccessToken  string
	RefreshToken string
}

// Authenticated reports whether all three parts of the session are present.
func (s Session) Authenticated() bool {
	return s.User != nil && s.AccessToken != "" && s.RefreshToken != ""
}

// AccountResponse is the body returned by login, register and refresh-token.
type AccountResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Profile returns the user carried by the response, or nil unless both
// username and email are present.
func (r AccountResponse) Profile() *UserProfile {
	if r.Username == "" || r.Email == "" {
		return nil
	}
	return &UserProfile{Username: r.Username, Email: r.Email}
}

// Tokens collects issued access/refresh tokens.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry (for diagnostics)
}

// User represents an account stored on the server. Passwords are never stored in plaintext.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	Email     string    // unique
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte    // per-user auth salt
	CreatedAt time.Time
}

// Profile returns the public part of the user.
func (u User) Profile() UserProfile {
	return UserProfile{Username: u.Username, Email: u.Email}
}

// RefreshToken is the server-side record of an issued refresh token.
// Only the SHA-256 of the opaque token is kept.
type RefreshToken struct {
	Hash      []byte
	UserID    uuid.UUID
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Active reports whether the token can still be exchanged at now.
func (t RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// WatchlistItem is a symbol the user follows, with optional price alerts.
type WatchlistItem struct {
	ID          uuid.UUID       `json:"id"`
	Symbol      string          `json:"symbol"`
	TargetPrice decimal.Decimal `json:"targetPrice"`
	StopLoss    decimal.Decimal `json:"stopLoss"`
	Priority    int             `json:"priority"`
	Notes       string          `json:"notes,omitempty"`
	DateAdded   time.Time       `json:"dateAdded"`
}

// NewWatchlistItem is a client request to follow a symbol.
type NewWatchlistItem struct {
	Symbol      string          `json:"symbol" validate:"required,alphanum,max=12"`
	TargetPrice decimal.Decimal `json:"targetPrice" validate:"gte=0"`
	StopLoss    decimal.Decimal `json:"stopLoss" validate:"gte=0"`
	Priority    int             `json:"priority" validate:"gte=0,lte=5"`
	Notes       string          `json:"notes,omitempty" validate:"max=500"`
}
