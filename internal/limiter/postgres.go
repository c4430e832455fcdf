package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter over the login_attempts table.
type PG struct {
	pool   pgxQuerier
	policy Policy
	now    func() time.Time
}

var _ Limiter = (*PG)(nil)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter. q is usually a *pgxpool.Pool.
func NewPG(q pgxQuerier, p Policy) *PG {
	return &PG{pool: q, policy: p, now: time.Now}
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM login_attempts WHERE username=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, username, ipHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		if wait := blockedUntil.Sub(l.now()); wait > 0 {
			return false, wait, nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets counters for (username, ip).
func (l *PG) Success(ctx context.Context, username string, ipHash []byte) error {
	const q = `DELETE FROM login_attempts WHERE username=$1 AND ip_hash=$2`
	_, err := l.pool.Exec(ctx, q, username, ipHash)
	return err
}

// Failure records a failed attempt; may set a block until a future time.
// A failure older than the window restarts the count.
func (l *PG) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	now := l.now()

	const q = `
INSERT INTO login_attempts (username, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, 'epoch', $3)
ON CONFLICT (username, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN $3 - login_attempts.updated_at > $4::interval THEN 1 ELSE login_attempts.fail_count + 1 END,
  updated_at = $3
RETURNING fail_count`
	var fails int
	if err := l.pool.QueryRow(ctx, q, username, ipHash, now, l.policy.Window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.policy.MaxFails {
		return false, 0, nil
	}
	const upd = `UPDATE login_attempts SET blocked_until=$3 WHERE username=$1 AND ip_hash=$2`
	if _, err := l.pool.Exec(ctx, upd, username, ipHash, now.Add(l.policy.BlockFor)); err != nil {
		return false, 0, err
	}
	return true, l.policy.BlockFor, nil
}
