package portfolio

import (
	"context"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/validate"
)

const watchlistPath = "/watchlist"

type Watchlist struct {
	api API
}

func NewWatchlist(api API) *Watchlist { return &Watchlist{api: api} }

func (w *Watchlist) List(ctx context.Context) ([]model.WatchlistItem, error) {
	var out []model.WatchlistItem
	err := w.api.Get(ctx, watchlistPath, nil, &out)
	return out, err
}

// Add follows a symbol. The symbol is upper-cased before validation.
func (w *Watchlist) Add(ctx context.Context, item model.NewWatchlistItem) (model.WatchlistItem, error) {
	item.Symbol = strings.ToUpper(strings.TrimSpace(item.Symbol))
	if err := validate.Struct(item); err != nil {
		return model.WatchlistItem{}, err
	}
	var out model.WatchlistItem
	err := w.api.Post(ctx, watchlistPath, item, &out)
	return out, err
}

func (w *Watchlist) Remove(ctx context.Context, id uuid.UUID) error {
	return w.api.Delete(ctx, watchlistPath+"/"+id.String(), nil)
}
