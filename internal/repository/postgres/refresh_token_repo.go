package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/repository"
)

// RefreshTokenRepo implements RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepo struct{ db *DB }

var _ repository.RefreshTokenRepository = (*RefreshTokenRepo)(nil)

// NewRefreshTokenRepo constructs a refresh token repository.
func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

const insRefresh = `INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`

// Create stores a newly issued token.
func (r *RefreshTokenRepo) Create(ctx context.Context, t model.RefreshToken) error {
	_, err := r.db.Pool.Exec(ctx, insRefresh, t.Hash, t.UserID, t.ExpiresAt, t.CreatedAt)
	return err
}

// Rotate locks the old row, revokes it and inserts next for the same owner.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, oldHash []byte, next model.RefreshToken, now time.Time) (uuid.UUID, error) {
	const sel = `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=$1 FOR UPDATE`
	const revoke = `UPDATE refresh_tokens SET revoked_at=$2 WHERE token_hash=$1`

	var owner uuid.UUID
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		old := model.RefreshToken{Hash: oldHash}
		if err := tx.QueryRow(ctx, sel, oldHash).Scan(&old.UserID, &old.ExpiresAt, &old.RevokedAt); err != nil {
			return rowErr(err)
		}
		if !old.Active(now) {
			return errs.ErrExpired
		}
		if _, err := tx.Exec(ctx, revoke, oldHash, now); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insRefresh, next.Hash, old.UserID, next.ExpiresAt, next.CreatedAt); err != nil {
			return err
		}
		owner = old.UserID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return owner, nil
}

// Revoke marks one live token revoked.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, hash []byte, now time.Time) error {
	const q = `UPDATE refresh_tokens SET revoked_at=$2 WHERE token_hash=$1 AND revoked_at IS NULL`
	tag, err := r.db.Pool.Exec(ctx, q, hash, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// RevokeAllForUser revokes every live token of the user and reports how many.
func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	const q = `UPDATE refresh_tokens SET revoked_at=$2 WHERE user_id=$1 AND revoked_at IS NULL`
	tag, err := r.db.Pool.Exec(ctx, q, userID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
