// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/stockfolio/internal/model"
)

// UserRepository provides access to accounts.
type UserRepository interface {
	// Create inserts a new user; a taken username or email is errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdatePassword replaces the password hash and salt.
	UpdatePassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error
}

// RefreshTokenRepository stores hashed refresh tokens.
type RefreshTokenRepository interface {
	// Create stores a newly issued token.
	Create(ctx context.Context, t model.RefreshToken) error
	// Rotate revokes the token with oldHash and stores next for the same user
	// in one transaction. It returns the owner. An unknown token is
	// errs.ErrNotFound, a revoked or expired one errs.ErrExpired.
	Rotate(ctx context.Context, oldHash []byte, next model.RefreshToken, now time.Time) (uuid.UUID, error)
	// Revoke marks one token revoked; an unknown or already revoked token is errs.ErrNotFound.
	Revoke(ctx context.Context, hash []byte, now time.Time) error
	// RevokeAllForUser revokes every live token of the user.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
}

// WatchlistRepository stores the symbols each user follows.
type WatchlistRepository interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error)
	// Add fails with errs.ErrAlreadyExists when the symbol is already followed.
	Add(ctx context.Context, userID uuid.UUID, item model.WatchlistItem) error
	// Remove fails with errs.ErrNotFound when the item is not the user's.
	Remove(ctx context.Context, userID, id uuid.UUID) error
}

// ResetTokenStore holds one-shot password reset tokens by hash.
type ResetTokenStore interface {
	Put(ctx context.Context, hash []byte, userID uuid.UUID, ttl time.Duration) error
	// Take returns and deletes the entry; a missing or expired one is errs.ErrNotFound.
	Take(ctx context.Context, hash []byte) (uuid.UUID, error)
}
