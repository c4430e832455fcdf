package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
)

type fakeWatchlist struct {
	items  map[uuid.UUID][]model.WatchlistItem
	addErr error
}

func (f *fakeWatchlist) List(_ context.Context, userID uuid.UUID) ([]model.WatchlistItem, error) {
	return f.items[userID], nil
}

func (f *fakeWatchlist) Add(_ context.Context, userID uuid.UUID, it model.WatchlistItem) error {
	if f.addErr != nil {
		return f.addErr
	}
	for _, e := range f.items[userID] {
		if e.Symbol == it.Symbol {
			return errs.ErrAlreadyExists
		}
	}
	f.items[userID] = append(f.items[userID], it)
	return nil
}

func (f *fakeWatchlist) Remove(_ context.Context, userID, id uuid.UUID) error {
	list := f.items[userID]
	for i, e := range list {
		if e.ID == id {
			f.items[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

func TestWatchlistService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeWatchlist{items: map[uuid.UUID][]model.WatchlistItem{}}
	s := NewWatchlistService(repo)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	user := uuid.Must(uuid.NewV4())

	empty, err := s.List(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, empty, "an empty list encodes as []")

	it, err := s.Add(ctx, user, model.NewWatchlistItem{Symbol: " tsla ", TargetPrice: decimal.NewFromInt(300), Priority: 2})
	require.NoError(t, err)
	require.Equal(t, "TSLA", it.Symbol)
	require.Equal(t, now, it.DateAdded)
	require.NotEqual(t, uuid.Nil, it.ID)

	_, err = s.Add(ctx, user, model.NewWatchlistItem{Symbol: "TSLA"})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	_, err = s.Add(ctx, user, model.NewWatchlistItem{Symbol: "TSLA", Priority: 9})
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	list, err := s.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.Remove(ctx, user, it.ID))
	require.ErrorIs(t, s.Remove(ctx, user, it.ID), errs.ErrNotFound)

	_, err = s.List(ctx, uuid.Nil)
	require.Error(t, err)

	repo.addErr = errors.New("db down")
	_, err = s.Add(ctx, user, model.NewWatchlistItem{Symbol: "AMD"})
	require.EqualError(t, err, "db down")
}
