package portfolio

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/and161185/stockfolio/internal/model"
)

// Overview is everything the dashboard shows at once.
type Overview struct {
	Transactions []model.Transaction   `json:"transactions"`
	Watchlist    []model.WatchlistItem `json:"watchlist"`
	Gainers      []model.StockSummary  `json:"gainers"`
	Losers       []model.StockSummary  `json:"losers"`
}

type Dashboard struct {
	stocks *Stocks
	tx     *Transactions
	watch  *Watchlist
	movers int
}

// NewDashboard builds a dashboard over api showing movers gainers and
// losers (DefaultMovers if <= 0).
func NewDashboard(api API, movers int) *Dashboard {
	if movers <= 0 {
		movers = DefaultMovers
	}
	return &Dashboard{
		stocks: NewStocks(api),
		tx:     NewTransactions(api),
		watch:  NewWatchlist(api),
		movers: movers,
	}
}

// Load fetches all parts concurrently and fails on the first error.
func (d *Dashboard) Load(ctx context.Context) (Overview, error) {
	var ov Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ov.Transactions, err = d.tx.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		ov.Watchlist, err = d.watch.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		ov.Gainers, err = d.stocks.TopGainers(ctx, d.movers)
		return err
	})
	g.Go(func() (err error) {
		ov.Losers, err = d.stocks.TopLosers(ctx, d.movers)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}
