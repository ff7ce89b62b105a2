package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xchain/exchange/internal/book"
	"github.com/xchain/exchange/internal/chain"
	"github.com/xchain/exchange/internal/pricing"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

var testSymbol = pricing.Symbol{
	Name:       "ETH_USDC",
	BaseAsset:  "ETH",
	QuoteAsset: "USDC",
}

func newTestOrchestrator(chains map[string]chain.Client) *Orchestrator {
	return NewOrchestrator(chains, RetryPolicy{MaxAttempts: 2, BaseBackoff: time.Millisecond}, zap.NewNop())
}

func sameChainTrade(sellerOrderID, buyerOrderID uint64, price, qty string) book.Trade {
	seller := book.Party{Account: "seller", Side: book.Ask, OrderID: sellerOrderID, ReceiveWallet: "seller-wallet", FromNetwork: "eth", ToNetwork: "eth"}
	buyer := book.Party{Account: "buyer", Side: book.Bid, OrderID: buyerOrderID, ReceiveWallet: "buyer-wallet", FromNetwork: "eth", ToNetwork: "eth"}
	return book.Trade{
		TradeID:  1,
		Symbol:   "ETH_USDC",
		Price:    dec(price),
		Quantity: dec(qty),
		Maker:    seller,
		Taker:    buyer,
	}
}

func TestPreCheckEscrow_InsufficientFunds(t *testing.T) {
	eth := chain.NewMockClient("eth")
	orch := newTestOrchestrator(map[string]chain.Client{"eth": eth})

	ord := &book.Order{Account: "taker", Side: book.Bid, Price: dec("100"), Quantity: dec("5"), FromNetwork: "eth", ToNetwork: "eth"}
	err := orch.PreCheckEscrow(context.Background(), ord, testSymbol)
	assert.ErrorIs(t, err, ErrInsufficientEscrow)
}

func TestPreCheckEscrow_UnknownChain(t *testing.T) {
	orch := newTestOrchestrator(map[string]chain.Client{})
	ord := &book.Order{FromNetwork: "eth"}
	err := orch.PreCheckEscrow(context.Background(), ord, testSymbol)
	assert.ErrorIs(t, err, ErrUnknownChain)
}

func TestPreCheckEscrow_ChecksFromNetworkRegardlessOfSide(t *testing.T) {
	eth := chain.NewMockClient("eth")
	eth.Ledger().Deposit("asker", "ETH", dec("10"))
	orch := newTestOrchestrator(map[string]chain.Client{"eth": eth})

	ord := &book.Order{Account: "asker", Side: book.Ask, Quantity: dec("5"), FromNetwork: "eth", ToNetwork: "eth"}
	assert.NoError(t, orch.PreCheckEscrow(context.Background(), ord, testSymbol))
}

func TestDispatch_SameChainHappyPath(t *testing.T) {
	eth := chain.NewMockClient("eth")
	eth.Ledger().Deposit("seller", "ETH", dec("10"))
	eth.Ledger().Deposit("buyer", "USDC", dec("1000"))

	orch := newTestOrchestrator(map[string]chain.Client{"eth": eth})
	trade := sameChainTrade(1, 2, "100", "3")

	rec := orch.Dispatch(context.Background(), trade, testSymbol)
	require.Equal(t, StatusSettled, rec.Status)
	assert.False(t, rec.CrossChain)
	assert.True(t, eth.Settled(trade.Taker.OrderID))

	buyerBal := eth.Ledger().Of("buyer-wallet", "ETH")
	assert.True(t, buyerBal.Total.Equal(dec("3")))
	sellerBal := eth.Ledger().Of("seller-wallet", "USDC")
	assert.True(t, sellerBal.Total.Equal(dec("300")))
}

func crossChainTrade(sellerOrderID, buyerOrderID uint64, price, qty string) book.Trade {
	seller := book.Party{Account: "seller", Side: book.Ask, OrderID: sellerOrderID, ReceiveWallet: "seller-wallet", FromNetwork: "eth", ToNetwork: "polygon"}
	buyer := book.Party{Account: "buyer", Side: book.Bid, OrderID: buyerOrderID, ReceiveWallet: "buyer-wallet", FromNetwork: "polygon", ToNetwork: "eth"}
	return book.Trade{
		TradeID:  1,
		Symbol:   "ETH_USDC",
		Price:    dec(price),
		Quantity: dec(qty),
		Maker:    seller,
		Taker:    buyer,
	}
}

func TestDispatch_CrossChainHappyPath(t *testing.T) {
	eth := chain.NewMockClient("eth")
	polygon := chain.NewMockClient("polygon")
	eth.Ledger().Deposit("seller", "ETH", dec("10"))
	polygon.Ledger().Deposit("buyer", "USDC", dec("1000"))

	orch := newTestOrchestrator(map[string]chain.Client{"eth": eth, "polygon": polygon})
	trade := crossChainTrade(1, 2, "100", "2")

	rec := orch.Dispatch(context.Background(), trade, testSymbol)
	require.Equal(t, StatusSettled, rec.Status)
	assert.True(t, rec.CrossChain)
	assert.True(t, rec.SourceSettled)
	assert.True(t, rec.DestSettled)
}

func TestDispatch_CrossChainAsymmetricTriggersRefund(t *testing.T) {
	eth := chain.NewMockClient("eth")
	polygon := chain.NewMockClient("polygon")
	eth.Ledger().Deposit("seller", "ETH", dec("10"))
	// buyer has no USDC on polygon, so the dest leg fails.

	orch := newTestOrchestrator(map[string]chain.Client{"eth": eth, "polygon": polygon})
	trade := crossChainTrade(1, 2, "100", "2")

	rec := orch.Dispatch(context.Background(), trade, testSymbol)
	require.Equal(t, StatusRefunded, rec.Status)
	assert.True(t, rec.Refunded)
	assert.False(t, eth.Settled(trade.Taker.OrderID))
}

func TestDispatch_CrossChainBothLegsFailAbandons(t *testing.T) {
	eth := chain.NewMockClient("eth")
	polygon := chain.NewMockClient("polygon")

	orch := newTestOrchestrator(map[string]chain.Client{"eth": eth, "polygon": polygon})
	trade := crossChainTrade(1, 2, "100", "2")

	rec := orch.Dispatch(context.Background(), trade, testSymbol)
	assert.Equal(t, StatusAbandoned, rec.Status)
}

func TestRecord_AsymmetricXOR(t *testing.T) {
	r := &Record{SourceSettled: true, DestSettled: false}
	assert.True(t, r.Asymmetric())
	r.DestSettled = true
	assert.False(t, r.Asymmetric())
	assert.True(t, r.BothSettled())
}
