package book

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the resting/incoming direction of an order.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Type distinguishes limit orders, which rest on the book, from market
// orders, which never rest.
type Type int

const (
	Limit Type = iota
	Market
)

// Order is one admitted request. Quantity is the remaining base quantity;
// it is decremented in place as the order is matched.
type Order struct {
	ID             uint64
	Account        string
	BaseAsset      string
	QuoteAsset     string
	Side           Side
	Type           Type
	Price          decimal.Decimal
	Quantity       decimal.Decimal
	FromNetwork    string
	ToNetwork      string
	ReceiveWallet  string
	Timestamp      time.Time
}

// CrossChain reports whether this order's two legs settle on different chains.
func (o *Order) CrossChain() bool {
	return o.FromNetwork != o.ToNetwork
}

// Party is the settlement-relevant projection of an order carried on a trade.
type Party struct {
	Account       string
	Side          Side
	OrderID       uint64
	ReceiveWallet string
	FromNetwork   string
	ToNetwork     string
}

func (o *Order) party() Party {
	return Party{
		Account:       o.Account,
		Side:          o.Side,
		OrderID:       o.ID,
		ReceiveWallet: o.ReceiveWallet,
		FromNetwork:   o.FromNetwork,
		ToNetwork:     o.ToNetwork,
	}
}
