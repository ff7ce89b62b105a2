package book

import (
	"sync"

	"github.com/shopspring/decimal"
)

// venue holds the two logical books kept per symbol: one for orders whose
// two legs settle on the same chain, one for orders that settle across two.
type venue struct {
	SameChain  *Book
	CrossChain *Book
}

// Registry maps symbol -> venue, creating books lazily on first use.
// Mutations to the map itself take a short registry-wide lock; each book
// guards its own trees independently.
type Registry struct {
	mu             sync.RWMutex
	books          map[string]*venue
	allowSelfTrade bool
}

func NewRegistry(allowSelfTrade bool) *Registry {
	return &Registry{books: make(map[string]*venue), allowSelfTrade: allowSelfTrade}
}

// BookFor returns the book for symbol on the requested venue, creating it on
// first use.
func (r *Registry) BookFor(symbol string, crossChain bool) *Book {
	r.mu.RLock()
	v, ok := r.books[symbol]
	r.mu.RUnlock()
	if ok {
		return r.pick(v, crossChain)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok = r.books[symbol]
	if !ok {
		v = &venue{
			SameChain:  NewBook(symbol, false, r.allowSelfTrade),
			CrossChain: NewBook(symbol, true, r.allowSelfTrade),
		}
		r.books[symbol] = v
	}
	return r.pick(v, crossChain)
}

func (r *Registry) pick(v *venue, crossChain bool) *Book {
	if crossChain {
		return v.CrossChain
	}
	return v.SameChain
}

// BookForOrder routes an order to the same-chain or cross-chain book based
// on whether its two networks match.
func (r *Registry) BookForOrder(o *Order) *Book {
	return r.BookFor(baseQuoteSymbol(o), o.CrossChain())
}

func baseQuoteSymbol(o *Order) string {
	return o.BaseAsset + "_" + o.QuoteAsset
}

// LookupOrder finds a resting order by id, searching every venue. Order ids
// are only unique within a single book, but this registry's scale makes a
// linear scan over venues acceptable; see DESIGN.md for the rationale.
func (r *Registry) LookupOrder(orderID uint64) (*Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.books {
		if o, ok := v.SameChain.GetOrder(orderID); ok {
			return o, true
		}
		if o, ok := v.CrossChain.GetOrder(orderID); ok {
			return o, true
		}
	}
	return nil, false
}

// CancelOrder cancels orderID on baseAsset/quoteAsset's symbol, trying the
// same-chain venue before the cross-chain venue.
func (r *Registry) CancelOrder(baseAsset, quoteAsset string, orderID uint64) error {
	symbol := baseAsset + "_" + quoteAsset
	r.mu.RLock()
	v, ok := r.books[symbol]
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := v.SameChain.CancelOrder(orderID); err == nil {
		return nil
	}
	return v.CrossChain.CancelOrder(orderID)
}

// BestOrder returns the best price and quantity for side across both venues
// of baseAsset/quoteAsset's symbol, preferring whichever venue's top is more
// favorable to a taker on that side.
func (r *Registry) BestOrder(baseAsset, quoteAsset string, side Side) (price, qty decimal.Decimal, ok bool) {
	symbol := baseAsset + "_" + quoteAsset
	r.mu.RLock()
	v, exists := r.books[symbol]
	r.mu.RUnlock()
	if !exists {
		return decimal.Zero, decimal.Zero, false
	}

	p1, q1, ok1 := v.SameChain.BestLevel(side)
	p2, q2, ok2 := v.CrossChain.BestLevel(side)
	switch {
	case ok1 && ok2:
		if betterFor(side, p1, p2) {
			return p1, q1, true
		}
		return p2, q2, true
	case ok1:
		return p1, q1, true
	case ok2:
		return p2, q2, true
	default:
		return decimal.Zero, decimal.Zero, false
	}
}

// betterFor reports whether a is at least as favorable as b for a taker on
// side (higher price wins for bids, lower price wins for asks).
func betterFor(side Side, a, b decimal.Decimal) bool {
	if side == Bid {
		return a.GreaterThanOrEqual(b)
	}
	return a.LessThanOrEqual(b)
}
