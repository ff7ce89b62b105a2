package book

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// priceKey renders a non-negative decimal as a fixed-width, zero-padded
// string so that lexicographic order over keys matches numeric order. Prices
// and quantities in this system are always >= 0, so no sign handling is
// needed. The integer part is padded to 24 digits and the fractional part to
// a fixed 18 digits.
func priceKey(p decimal.Decimal) string {
	whole := p.Truncate(0)
	frac := p.Sub(whole)
	wholeStr := whole.StringFixed(0)
	if pad := 24 - len(wholeStr); pad > 0 {
		wholeStr = strings.Repeat("0", pad) + wholeStr
	}
	fracStr := strings.TrimPrefix(frac.Abs().StringFixed(18), "0.")
	return wholeStr + "." + fracStr
}

// PriceTree is the ordered map of price -> level for one side of one book.
// Backed by a balanced btree, giving O(log n) min/max/insert/delete.
type PriceTree struct {
	side   Side
	tree   *btree.Map[string, *PriceLevel]
	Volume decimal.Decimal
	Orders int
}

func newPriceTree(side Side) *PriceTree {
	return &PriceTree{side: side, tree: btree.NewMap[string, *PriceLevel](32), Volume: decimal.Zero}
}

// insertOrder finds or creates the level at order.Price and appends order to
// it, returning the level and the stable node handle.
func (t *PriceTree) insertOrder(o *Order) (*PriceLevel, *orderNode) {
	key := priceKey(o.Price)
	level, ok := t.tree.Get(key)
	if !ok {
		level = newPriceLevel(o.Price)
		t.tree.Set(key, level)
	}
	node := level.append(o)
	t.Volume = t.Volume.Add(o.Quantity)
	t.Orders++
	return level, node
}

// removeOrder removes node from level, deleting the level from the tree if
// it becomes empty.
func (t *PriceTree) removeOrder(level *PriceLevel, node *orderNode) {
	qty := node.order.Quantity
	level.remove(node)
	t.Volume = t.Volume.Sub(qty)
	t.Orders--
	if level.empty() {
		t.tree.Delete(priceKey(level.Price))
	}
}

// bestLevel returns the best (highest for bids, lowest for asks) non-empty
// level, or nil if the tree is empty.
func (t *PriceTree) bestLevel() *PriceLevel {
	var best *PriceLevel
	if t.side == Bid {
		t.tree.Reverse(func(_ string, level *PriceLevel) bool {
			best = level
			return false
		})
	} else {
		t.tree.Scan(func(_ string, level *PriceLevel) bool {
			best = level
			return false
		})
	}
	return best
}

// bestPrice returns the best price and whether the tree is non-empty.
func (t *PriceTree) bestPrice() (decimal.Decimal, bool) {
	lvl := t.bestLevel()
	if lvl == nil {
		return decimal.Zero, false
	}
	return lvl.Price, true
}

// forEachBestFirst walks levels best-first (descending for bids, ascending
// for asks), the order the matching loop crosses them in.
func (t *PriceTree) forEachBestFirst(fn func(level *PriceLevel) bool) {
	if t.side == Bid {
		t.tree.Reverse(func(_ string, level *PriceLevel) bool { return fn(level) })
	} else {
		t.tree.Scan(func(_ string, level *PriceLevel) bool { return fn(level) })
	}
}

// snapshot returns up to depth levels best-first as [price, volume] pairs.
// depth <= 0 means unbounded.
func (t *PriceTree) snapshot(depth int) [][2]string {
	out := make([][2]string, 0)
	t.forEachBestFirst(func(level *PriceLevel) bool {
		out = append(out, [2]string{level.Price.String(), level.Volume.String()})
		return depth <= 0 || len(out) < depth
	})
	return out
}
