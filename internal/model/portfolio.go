package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stock is a listed security as returned by the market endpoints.
type Stock struct {
	ID            int64           `json:"id"`
	Symbol        string          `json:"symbol"`
	CompanyName   string          `json:"companyName"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	OpenPrice     decimal.Decimal `json:"openPrice"`
	DayHigh       decimal.Decimal `json:"dayHigh"`
	DayLow        decimal.Decimal `json:"dayLow"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	MarketCap     decimal.Decimal `json:"marketCap"`
	Volume        int64           `json:"volume"`
	Industry      string          `json:"industry"`
	Sector        string          `json:"sector"`
	Country       string          `json:"country"`
	MarketStatus  string          `json:"marketStatus"`
	LastUpdated   string          `json:"lastUpdated"`
}

// StockSummary is the lightweight row used by summaries and mover lists.
type StockSummary struct {
	ID            int64           `json:"id"`
	Symbol        string          `json:"symbol"`
	CompanyName   string          `json:"companyName"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Volume        int64           `json:"volume"`
	MarketCap     decimal.Decimal `json:"marketCap"`
	IsGainer      bool            `json:"isGainer"`
	IsLoser       bool            `json:"isLoser"`
}

// HistoricalPrice is one daily OHLCV bar.
type HistoricalPrice struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// RealtimePrice is the latest quote for a symbol.
type RealtimePrice struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp string          `json:"timestamp"`
}

// TransactionType is the wire enum used by the transaction endpoints.
type TransactionType int

// Transaction types.
const (
	Buy      TransactionType = 1
	Sell     TransactionType = 2
	Dividend TransactionType = 3
)

func (t TransactionType) String() string {
	switch t {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case Dividend:
		return "dividend"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ParseTransactionType accepts buy, sell or dividend in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	case "dividend":
		return Dividend, nil
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

// Transaction is a recorded trade or dividend.
type Transaction struct {
	ID              int64           `json:"id"`
	StockID         int64           `json:"stockId"`
	Symbol          string          `json:"symbol,omitempty"`
	CompanyName     string          `json:"companyName,omitempty"`
	TransactionType TransactionType `json:"transactionType"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Commission      decimal.Decimal `json:"commission"`
	TransactionDate time.Time       `json:"transactionDate"`
	Status          string          `json:"status,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// TotalCost is quantity*price with commission added for buys and deducted for sells.
func (t Transaction) TotalCost() decimal.Decimal {
	amount := t.Quantity.Mul(t.Price)
	switch t.TransactionType {
	case Buy:
		return amount.Add(t.Commission)
	case Sell:
		return amount.Sub(t.Commission)
	default:
		return amount
	}
}

// TransactionRequest creates or replaces a transaction.
type TransactionRequest struct {
	StockID         int64           `json:"stockId" validate:"gt=0"`
	TransactionType TransactionType `json:"transactionType" validate:"oneof=1 2 3"`
	Quantity        decimal.Decimal `json:"quantity" validate:"gt=0"`
	Price           decimal.Decimal `json:"price" validate:"gte=0"`
	Commission      decimal.Decimal `json:"commission" validate:"gte=0"`
	TransactionDate time.Time       `json:"transactionDate" validate:"required"`
	Notes           string          `json:"notes,omitempty" validate:"max=500"`
}
