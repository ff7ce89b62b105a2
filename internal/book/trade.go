package book

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one append-only tape record. Price is always the maker's price.
type Trade struct {
	TradeID   uint64
	Symbol    string
	Timestamp time.Time
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Maker     Party
	Taker     Party
}
