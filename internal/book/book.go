package book

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by CancelOrder for an unknown order id.
var ErrNotFound = errors.New("book: order not found")

// Book holds all resting orders for one symbol and one venue (same-chain or
// cross-chain). Admission and matching execute under a single lock, so
// admission and matching for one book form a single critical section and
// price-time priority is preserved.
type Book struct {
	Symbol         string
	CrossChain     bool
	AllowSelfTrade bool

	mu          sync.Mutex
	bids        *PriceTree
	asks        *PriceTree
	index       orderIndex
	nextOrderID uint64
	nextTradeID uint64
	tape        []Trade
}

// NewBook creates an empty book. allowSelfTrade controls whether an order
// may match against a resting order from the same account; it defaults to
// true (self-trades permitted) at the registry level.
func NewBook(symbol string, crossChain bool, allowSelfTrade bool) *Book {
	return &Book{
		Symbol:         symbol,
		CrossChain:     crossChain,
		AllowSelfTrade: allowSelfTrade,
		bids:           newPriceTree(Bid),
		asks:           newPriceTree(Ask),
		index:          make(orderIndex),
	}
}

// AddOrder admits o, assigning its order id and timestamp, and runs it
// through the matching loop. For a limit order any residual quantity is
// rested on the book; for a market order any residual is returned unfilled
// in o.Quantity and never rests.
func (b *Book) AddOrder(o *Order) []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextOrderID++
	o.ID = b.nextOrderID
	o.Timestamp = time.Now()

	if o.Type == Market {
		return b.processMarketLocked(o)
	}
	return b.processLimitLocked(o)
}

func (b *Book) processLimitLocked(o *Order) []Trade {
	var opposite, own *PriceTree
	var crosses func(decimal.Decimal) bool
	if o.Side == Bid {
		opposite, own = b.asks, b.bids
		crosses = func(p decimal.Decimal) bool { return p.LessThanOrEqual(o.Price) }
	} else {
		opposite, own = b.bids, b.asks
		crosses = func(p decimal.Decimal) bool { return p.GreaterThanOrEqual(o.Price) }
	}

	trades := b.matchLoop(o, opposite, crosses)

	if o.Quantity.GreaterThan(decimal.Zero) {
		level, node := own.insertOrder(o)
		b.index[o.ID] = &handle{side: o.Side, level: level, node: node}
	}
	return trades
}

func (b *Book) processMarketLocked(o *Order) []Trade {
	opposite := b.asks
	if o.Side == Ask {
		opposite = b.bids
	}
	// Market orders carry no price gate; unfilled quantity is never rested.
	return b.matchLoop(o, opposite, nil)
}

// matchLoop walks opposite best-first, consuming resting makers against
// taker until taker is filled, the opposing side runs dry, or crosses(level)
// fails. When AllowSelfTrade is false, a maker owned by the taker's account
// is skipped in place (the taker keeps matching later makers at the same
// level) and is never consumed by this taker.
func (b *Book) matchLoop(taker *Order, opposite *PriceTree, crosses func(decimal.Decimal) bool) []Trade {
	// Collect the crossing levels first: a level that empties is deleted
	// from the tree, which must not happen while the tree is being scanned.
	var levels []*PriceLevel
	opposite.forEachBestFirst(func(level *PriceLevel) bool {
		if crosses != nil && !crosses(level.Price) {
			return false
		}
		levels = append(levels, level)
		return true
	})

	var trades []Trade
	for _, level := range levels {
		if taker.Quantity.LessThanOrEqual(decimal.Zero) {
			break
		}
		node := level.headNode()
		for node != nil && taker.Quantity.GreaterThan(decimal.Zero) {
			maker := node.order
			next := node.next
			if !b.AllowSelfTrade && maker.Account == taker.Account {
				node = next
				continue
			}

			var matchQty decimal.Decimal
			consumesMaker := false
			if taker.Quantity.LessThan(maker.Quantity) {
				matchQty = taker.Quantity
				level.updateQuantity(node, matchQty.Neg())
				taker.Quantity = decimal.Zero
			} else {
				matchQty = maker.Quantity
				consumesMaker = true
				taker.Quantity = taker.Quantity.Sub(matchQty)
			}

			b.nextTradeID++
			trade := Trade{
				TradeID:   b.nextTradeID,
				Symbol:    b.Symbol,
				Timestamp: time.Now(),
				Price:     level.Price,
				Quantity:  matchQty,
				Maker:     maker.party(),
				Taker:     taker.party(),
			}
			trades = append(trades, trade)
			b.tape = append(b.tape, trade)

			if consumesMaker {
				opposite.removeOrder(level, node)
				delete(b.index, maker.ID)
			}
			node = next
		}
	}
	return trades
}

// CancelOrder removes a resting order by id.
func (b *Book) CancelOrder(id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	h, ok := b.index[id]
	if !ok {
		return ErrNotFound
	}
	tree := b.bids
	if h.side == Ask {
		tree = b.asks
	}
	tree.removeOrder(h.level, h.node)
	delete(b.index, id)
	return nil
}

// GetOrder returns a resting order by id without removing it.
func (b *Book) GetOrder(id uint64) (*Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h, ok := b.index[id]
	if !ok {
		return nil, false
	}
	// Return a copy: callers must not mutate resting order state directly.
	o := *h.node.order
	return &o, true
}

// BestBid and BestAsk report the top of book, if any.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.bestPrice()
}

func (b *Book) BestAsk() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.bestPrice()
}

// BestLevel reports the price and aggregate resting quantity of the best
// level on the requested side, if any.
func (b *Book) BestLevel(side Side) (price, qty decimal.Decimal, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tree := b.bids
	if side == Ask {
		tree = b.asks
	}
	lvl := tree.bestLevel()
	if lvl == nil {
		return decimal.Zero, decimal.Zero, false
	}
	return lvl.Price, lvl.Volume, true
}

// Snapshot returns up to depth price levels per side, bids descending and
// asks ascending. depth <= 0 returns every level.
func (b *Book) Snapshot(depth int) (bids, asks [][2]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.snapshot(depth), b.asks.snapshot(depth)
}

// Tape returns the most recent limit trade records for this book, oldest
// first within the returned window. limit <= 0 returns the whole tape.
func (b *Book) Tape(limit int) []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit >= len(b.tape) {
		out := make([]Trade, len(b.tape))
		copy(out, b.tape)
		return out
	}
	out := make([]Trade, limit)
	copy(out, b.tape[len(b.tape)-limit:])
	return out
}
