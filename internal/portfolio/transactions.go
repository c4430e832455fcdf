package portfolio

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/validate"
)

const txBase = "/transaction"

// dateLayout is the day format of the date-range query.
const dateLayout = "2006-01-02"

type Transactions struct {
	api API
}

func NewTransactions(api API) *Transactions { return &Transactions{api: api} }

// List returns every transaction of the logged-in user.
func (t *Transactions) List(ctx context.Context) ([]model.Transaction, error) {
	var out []model.Transaction
	err := t.api.Get(ctx, txBase+"/user", nil, &out)
	return out, err
}

func (t *Transactions) ByID(ctx context.Context, id int64) (model.Transaction, error) {
	var out model.Transaction
	err := t.api.Get(ctx, txBase+"/get-by-id/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

func (t *Transactions) ByStock(ctx context.Context, stockID int64) ([]model.Transaction, error) {
	var out []model.Transaction
	err := t.api.Get(ctx, txBase+"/user/stock/"+strconv.FormatInt(stockID, 10), nil, &out)
	return out, err
}

// ByDateRange returns transactions between from and to, both days inclusive.
func (t *Transactions) ByDateRange(ctx context.Context, from, to time.Time) ([]model.Transaction, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range ends before it starts", errs.ErrInvalidInput)
	}
	q := url.Values{
		"startDate": {from.Format(dateLayout)},
		"endDate":   {to.Format(dateLayout)},
	}
	var out []model.Transaction
	err := t.api.Get(ctx, txBase+"/date-range", q, &out)
	return out, err
}

func (t *Transactions) Create(ctx context.Context, req model.TransactionRequest) (model.Transaction, error) {
	if err := validate.Struct(req); err != nil {
		return model.Transaction{}, err
	}
	var out model.Transaction
	err := t.api.Post(ctx, txBase+"/add-transaction", req, &out)
	return out, err
}

func (t *Transactions) Update(ctx context.Context, id int64, req model.TransactionRequest) (model.Transaction, error) {
	if err := validate.Struct(req); err != nil {
		return model.Transaction{}, err
	}
	var out model.Transaction
	err := t.api.Put(ctx, txBase+"/update-transaction/"+strconv.FormatInt(id, 10), req, &out)
	return out, err
}

func (t *Transactions) Delete(ctx context.Context, id int64) error {
	return t.api.Delete(ctx, txBase+"/delete-transaction/"+strconv.FormatInt(id, 10), nil)
}
