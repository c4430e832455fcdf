package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
)

func TestWatchlistRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	user := uuid.Must(uuid.NewV4())
	a, b := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	added := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, symbol, target_price, stop_loss, priority, notes, date_added FROM watchlist WHERE user_id=\$1 ORDER BY priority DESC, date_added`).
		WithArgs(user).
		WillReturnRows(pgxmock.NewRows([]string{"id", "symbol", "target_price", "stop_loss", "priority", "notes", "date_added"}).
			AddRow(a, "NVDA", "150.5", "0", 3, "", added).
			AddRow(b, "AAPL", "0", "120", 1, "dip", added))

	items, err := NewWatchlistRepo(db).List(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "NVDA", items[0].Symbol)
	require.True(t, items[0].TargetPrice.Equal(decimal.RequireFromString("150.5")))
	require.Equal(t, "dip", items[1].Notes)
}

func TestWatchlistRepo_Add(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWatchlistRepo(db)
	user := uuid.Must(uuid.NewV4())
	it := model.WatchlistItem{
		ID:          uuid.Must(uuid.NewV4()),
		Symbol:      "MSFT",
		TargetPrice: decimal.NewFromInt(500),
		StopLoss:    decimal.Zero,
		Priority:    2,
		DateAdded:   time.Now().UTC(),
	}
	args := []any{it.ID, user, it.Symbol, it.TargetPrice, it.StopLoss, it.Priority, it.Notes, it.DateAdded}

	mock.ExpectExec(`INSERT INTO watchlist`).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Add(context.Background(), user, it))

	mock.ExpectExec(`INSERT INTO watchlist`).WithArgs(args...).WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Add(context.Background(), user, it), errs.ErrAlreadyExists)
}

func TestWatchlistRepo_Remove(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWatchlistRepo(db)
	user, id := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM watchlist WHERE id=\$1 AND user_id=\$2`).
		WithArgs(id, user).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Remove(context.Background(), user, id))

	mock.ExpectExec(`DELETE FROM watchlist`).
		WithArgs(id, user).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Remove(context.Background(), user, id), errs.ErrNotFound)
}
