// Package portfolio wraps the market, transaction and watchlist endpoints.
// Every call goes through the authorized client, so expired tokens are
// refreshed transparently.
package portfolio

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/and161185/stockfolio/internal/model"
)

// API is satisfied by *transport.Client.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

const (
	DefaultMovers      = 10
	DefaultHistoryDays = 30
)

// Query filters and pages stock listings. Zero values are omitted.
type Query struct {
	SearchTerm string
	Industry   string
	SortBy     string
	Descending bool
	PageNumber int
	PageSize   int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.SearchTerm != "" {
		v.Set("searchTerm", q.SearchTerm)
	}
	if q.Industry != "" {
		v.Set("industry", q.Industry)
	}
	if q.SortBy != "" {
		v.Set("SortBy", q.SortBy)
	}
	if q.Descending {
		v.Set("IsDescending", "true")
	}
	if q.PageNumber > 0 {
		v.Set("PageNumber", strconv.Itoa(q.PageNumber))
	}
	if q.PageSize > 0 {
		v.Set("PageSize", strconv.Itoa(q.PageSize))
	}
	return v
}

type Stocks struct {
	api API
}

func NewStocks(api API) *Stocks { return &Stocks{api: api} }

func (s *Stocks) List(ctx context.Context, q Query) ([]model.Stock, error) {
	var out []model.Stock
	err := s.api.Get(ctx, "/stock/get-all", q.values(), &out)
	return out, err
}

// Summary is the lightweight listing; it does not filter by industry.
func (s *Stocks) Summary(ctx context.Context, q Query) ([]model.StockSummary, error) {
	q.Industry = ""
	var out []model.StockSummary
	err := s.api.Get(ctx, "/stock/summary", q.values(), &out)
	return out, err
}

func (s *Stocks) ByID(ctx context.Context, id int64) (model.Stock, error) {
	var out model.Stock
	err := s.api.Get(ctx, "/stock/get-by-id/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

func (s *Stocks) BySymbol(ctx context.Context, symbol string) (model.Stock, error) {
	var out model.Stock
	err := s.api.Get(ctx, "/stock/symbol/"+normSymbol(symbol), nil, &out)
	return out, err
}

func (s *Stocks) TopGainers(ctx context.Context, count int) ([]model.StockSummary, error) {
	return s.movers(ctx, "/stock/top-gainers", count)
}

func (s *Stocks) TopLosers(ctx context.Context, count int) ([]model.StockSummary, error) {
	return s.movers(ctx, "/stock/top-losers", count)
}

func (s *Stocks) MostActive(ctx context.Context, count int) ([]model.StockSummary, error) {
	return s.movers(ctx, "/stock/most-active", count)
}

func (s *Stocks) movers(ctx context.Context, path string, count int) ([]model.StockSummary, error) {
	if count <= 0 {
		count = DefaultMovers
	}
	var out []model.StockSummary
	err := s.api.Get(ctx, path, url.Values{"count": {strconv.Itoa(count)}}, &out)
	return out, err
}

func (s *Stocks) CurrentPrice(ctx context.Context, symbol string) (model.RealtimePrice, error) {
	var out model.RealtimePrice
	err := s.api.Get(ctx, "/stock/"+normSymbol(symbol)+"/current-price", nil, &out)
	return out, err
}

// Historical returns daily bars for the last days days (DefaultHistoryDays if <= 0).
func (s *Stocks) Historical(ctx context.Context, stockID int64, days int) ([]model.HistoricalPrice, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	var out []model.HistoricalPrice
	path := "/stock/" + strconv.FormatInt(stockID, 10) + "/historical/" + strconv.Itoa(days)
	err := s.api.Get(ctx, path, nil, &out)
	return out, err
}

func normSymbol(s string) string {
	return url.PathEscape(strings.ToUpper(strings.TrimSpace(s)))
}
