package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crossOrder(account string, side Side, price, qty, from, to string) *Order {
	o := limitOrder(account, side, price, qty)
	o.FromNetwork = from
	o.ToNetwork = to
	return o
}

func TestRegistry_BookForOrderRoutesByVenue(t *testing.T) {
	r := NewRegistry(true)

	same := limitOrder("a", Bid, "100", "1")
	cross := crossOrder("b", Bid, "100", "1", "eth", "polygon")

	assert.Same(t, r.BookFor("ETH_USDC", false), r.BookForOrder(same))
	assert.Same(t, r.BookFor("ETH_USDC", true), r.BookForOrder(cross))
}

func TestRegistry_LookupAndCancelOrder(t *testing.T) {
	r := NewRegistry(true)
	b := r.BookFor("ETH_USDC", false)
	b.AddOrder(limitOrder("maker", Bid, "100", "1"))

	ord, ok := r.LookupOrder(1)
	require.True(t, ok)
	assert.Equal(t, "maker", ord.Account)

	require.NoError(t, r.CancelOrder("ETH", "USDC", 1))
	_, ok = r.LookupOrder(1)
	assert.False(t, ok)

	assert.Error(t, r.CancelOrder("ETH", "USDC", 999))
	assert.Error(t, r.CancelOrder("BTC", "USDC", 1))
}

func TestRegistry_CancelOrderCrossChainVenue(t *testing.T) {
	r := NewRegistry(true)
	cb := r.BookFor("ETH_USDC", true)
	cb.AddOrder(crossOrder("maker", Bid, "100", "1", "eth", "polygon"))

	require.NoError(t, r.CancelOrder("ETH", "USDC", 1))
}

func TestRegistry_BestOrderPrefersFavorableVenue(t *testing.T) {
	r := NewRegistry(true)
	sameBook := r.BookFor("ETH_USDC", false)
	crossBook := r.BookFor("ETH_USDC", true)

	sameBook.AddOrder(limitOrder("a", Ask, "105", "1"))
	crossBook.AddOrder(crossOrder("b", Ask, "102", "1", "eth", "polygon"))

	price, _, ok := r.BestOrder("ETH", "USDC", Ask)
	require.True(t, ok)
	assert.True(t, price.Equal(d("102")))
}

func TestRegistry_BestOrderUnknownSymbol(t *testing.T) {
	r := NewRegistry(true)
	_, _, ok := r.BestOrder("XX", "YY", Bid)
	assert.False(t, ok)
}
