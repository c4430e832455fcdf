package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/repository"
	"github.com/and161185/stockfolio/internal/validate"
)

// WatchlistService defines per-user watchlist operations.
type WatchlistService interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error)
	Add(ctx context.Context, userID uuid.UUID, req model.NewWatchlistItem) (model.WatchlistItem, error)
	Remove(ctx context.Context, userID, id uuid.UUID) error
}

type WatchlistServiceImpl struct {
	repo repository.WatchlistRepository
	now  func() time.Time
}

var _ WatchlistService = (*WatchlistServiceImpl)(nil)

func NewWatchlistService(repo repository.WatchlistRepository) *WatchlistServiceImpl {
	return &WatchlistServiceImpl{repo: repo, now: time.Now}
}

var errNoUser = errors.New("validation: empty userID")

func (s *WatchlistServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error) {
	if userID == uuid.Nil {
		return nil, errNoUser
	}
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.WatchlistItem{}
	}
	return items, nil
}

// Add upper-cases the symbol, validates and stores the item.
func (s *WatchlistServiceImpl) Add(ctx context.Context, userID uuid.UUID, req model.NewWatchlistItem) (model.WatchlistItem, error) {
	if userID == uuid.Nil {
		return model.WatchlistItem{}, errNoUser
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := validate.Struct(req); err != nil {
		return model.WatchlistItem{}, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.WatchlistItem{}, err
	}
	it := model.WatchlistItem{
		ID:          id,
		Symbol:      req.Symbol,
		TargetPrice: req.TargetPrice,
		StopLoss:    req.StopLoss,
		Priority:    req.Priority,
		Notes:       req.Notes,
		DateAdded:   s.now().UTC(),
	}
	if err := s.repo.Add(ctx, userID, it); err != nil {
		return model.WatchlistItem{}, err
	}
	return it, nil
}

func (s *WatchlistServiceImpl) Remove(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil {
		return errNoUser
	}
	return s.repo.Remove(ctx, userID, id)
}
