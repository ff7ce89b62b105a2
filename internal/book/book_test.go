package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func limitOrder(account string, side Side, price, qty string) *Order {
	return &Order{
		Account:       account,
		BaseAsset:     "ETH",
		QuoteAsset:    "USDC",
		Side:          side,
		Type:          Limit,
		Price:         d(price),
		Quantity:      d(qty),
		FromNetwork:   "eth",
		ToNetwork:     "eth",
		ReceiveWallet: account,
	}
}

func TestAddOrder_SimpleMatchSameChain(t *testing.T) {
	b := NewBook("ETH_USDC", false, true)

	ask := limitOrder("maker", Ask, "100", "5")
	trades := b.AddOrder(ask)
	require.Empty(t, trades)

	bid := limitOrder("taker", Bid, "100", "3")
	trades = b.AddOrder(bid)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(d("100")))
	assert.True(t, trades[0].Quantity.Equal(d("3")))
	assert.Equal(t, ask.ID, trades[0].Maker.OrderID)
	assert.Equal(t, bid.ID, trades[0].Taker.OrderID)

	resting, ok := b.GetOrder(ask.ID)
	require.True(t, ok)
	assert.True(t, resting.Quantity.Equal(d("2")))
}

func TestAddOrder_WalksTheBook(t *testing.T) {
	b := NewBook("ETH_USDC", false, true)

	b.AddOrder(limitOrder("m1", Ask, "100", "2"))
	b.AddOrder(limitOrder("m2", Ask, "101", "2"))
	b.AddOrder(limitOrder("m3", Ask, "102", "2"))

	trades := b.AddOrder(limitOrder("taker", Bid, "102", "5"))
	require.Len(t, trades, 3)
	assert.True(t, trades[0].Price.Equal(d("100")))
	assert.True(t, trades[1].Price.Equal(d("101")))
	assert.True(t, trades[2].Price.Equal(d("102")))
	assert.True(t, trades[2].Quantity.Equal(d("1")))

	_, bidOK := b.BestBid()
	assert.False(t, bidOK)
}

func TestAddOrder_PriceTimePriority(t *testing.T) {
	b := NewBook("ETH_USDC", false, true)

	first := b.AddOrder(limitOrder("first", Bid, "100", "2"))
	require.Empty(t, first)
	second := b.AddOrder(limitOrder("second", Bid, "100", "2"))
	require.Empty(t, second)

	trades := b.AddOrder(limitOrder("taker", Ask, "100", "3"))
	require.Len(t, trades, 2)
	assert.True(t, trades[0].Quantity.Equal(d("2")))
	assert.Equal(t, uint64(1), trades[0].Maker.OrderID)
	assert.True(t, trades[1].Quantity.Equal(d("1")))
	assert.Equal(t, uint64(2), trades[1].Maker.OrderID)
}

func TestCancelOrder(t *testing.T) {
	b := NewBook("ETH_USDC", false, true)
	resting := b.AddOrder(limitOrder("maker", Bid, "99", "1"))
	require.Empty(t, resting)

	ord, ok := b.GetOrder(1)
	require.True(t, ok)

	require.NoError(t, b.CancelOrder(ord.ID))
	_, ok = b.GetOrder(ord.ID)
	assert.False(t, ok)

	assert.ErrorIs(t, b.CancelOrder(ord.ID), ErrNotFound)
}

func TestAddOrder_SelfTradePreventionEnabled(t *testing.T) {
	b := NewBook("ETH_USDC", false, false)
	b.AddOrder(limitOrder("same-account", Ask, "100", "2"))

	trades := b.AddOrder(limitOrder("same-account", Bid, "100", "2"))
	assert.Empty(t, trades)

	bid, ok := b.GetOrder(2)
	require.True(t, ok)
	assert.True(t, bid.Quantity.Equal(d("2")))
}

func TestAddOrder_SelfTradeAllowedByDefault(t *testing.T) {
	b := NewBook("ETH_USDC", false, true)
	b.AddOrder(limitOrder("same-account", Ask, "100", "2"))

	trades := b.AddOrder(limitOrder("same-account", Bid, "100", "2"))
	require.Len(t, trades, 1)
}

func TestAddOrder_MarketOrderNeverRests(t *testing.T) {
	b := NewBook("ETH_USDC", false, true)
	b.AddOrder(limitOrder("maker", Ask, "100", "1"))

	market := &Order{
		Account:    "taker",
		BaseAsset:  "ETH",
		QuoteAsset: "USDC",
		Side:       Bid,
		Type:       Market,
		Quantity:   d("5"),
	}
	trades := b.AddOrder(market)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(d("1")))

	_, ok := b.GetOrder(market.ID)
	assert.False(t, ok)
}

func TestOrder_CrossChainDetection(t *testing.T) {
	o := limitOrder("a", Bid, "1", "1")
	assert.False(t, o.CrossChain())

	o.ToNetwork = "polygon"
	assert.True(t, o.CrossChain())
}

func TestBestLevel(t *testing.T) {
	b := NewBook("ETH_USDC", false, true)
	_, _, ok := b.BestLevel(Bid)
	assert.False(t, ok)

	b.AddOrder(limitOrder("m1", Bid, "100", "2"))
	b.AddOrder(limitOrder("m2", Bid, "100", "3"))

	price, qty, ok := b.BestLevel(Bid)
	require.True(t, ok)
	assert.True(t, price.Equal(d("100")))
	assert.True(t, qty.Equal(d("5")))
}

func TestSnapshotAndTape(t *testing.T) {
	b := NewBook("ETH_USDC", false, true)
	b.AddOrder(limitOrder("m1", Bid, "99", "1"))
	b.AddOrder(limitOrder("m2", Ask, "101", "1"))
	b.AddOrder(limitOrder("taker", Bid, "101", "1"))

	bids, asks := b.Snapshot(0)
	assert.Len(t, bids, 1)
	assert.Empty(t, asks)

	tape := b.Tape(0)
	require.Len(t, tape, 1)
	assert.True(t, tape[0].Price.Equal(d("101")))
}
