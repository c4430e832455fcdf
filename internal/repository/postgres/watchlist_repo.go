package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/repository"
)

// WatchlistRepo implements WatchlistRepository using PostgreSQL.
type WatchlistRepo struct{ db *DB }

var _ repository.WatchlistRepository = (*WatchlistRepo)(nil)

// NewWatchlistRepo constructs a watchlist repository.
func NewWatchlistRepo(db *DB) *WatchlistRepo { return &WatchlistRepo{db: db} }

// List returns the user's items, highest priority first.
func (r *WatchlistRepo) List(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error) {
	const q = `
SELECT id, symbol, target_price, stop_loss, priority, notes, date_added
FROM watchlist
WHERE user_id=$1
ORDER BY priority DESC, date_added`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.WatchlistItem, error) {
		var it model.WatchlistItem
		err := row.Scan(&it.ID, &it.Symbol, &it.TargetPrice, &it.StopLoss, &it.Priority, &it.Notes, &it.DateAdded)
		return it, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Add inserts an item; the (user, symbol) pair is unique.
func (r *WatchlistRepo) Add(ctx context.Context, userID uuid.UUID, it model.WatchlistItem) error {
	const q = `
INSERT INTO watchlist (id, user_id, symbol, target_price, stop_loss, priority, notes, date_added)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Pool.Exec(ctx, q, it.ID, userID, it.Symbol, it.TargetPrice, it.StopLoss, it.Priority, it.Notes, it.DateAdded)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Remove deletes one of the user's items.
func (r *WatchlistRepo) Remove(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM watchlist WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
