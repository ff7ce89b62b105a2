package chain

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/xchain/exchange/internal/escrow"
)

// MockClient is a deterministic in-memory Client used by tests and local
// development in place of a real RPC connection. It reproduces the same
// idempotency and lock semantics as a real settlement contract, without
// touching a network.
type MockClient struct {
	chainID string
	ledger  *escrow.Ledger

	mu       sync.Mutex
	locks    map[uint64]bool // orderID -> lock exists on this chain
	settled  map[uint64]bool // orderID -> settled on this chain
	failures map[uint64]string
}

func NewMockClient(chainID string) *MockClient {
	return &MockClient{
		chainID:  chainID,
		ledger:   escrow.NewLedger(),
		locks:    make(map[uint64]bool),
		settled:  make(map[uint64]bool),
		failures: make(map[uint64]string),
	}
}

// Ledger exposes the backing escrow ledger, for seeding balances in tests
// and for the /api/check_available_funds handler.
func (c *MockClient) Ledger() *escrow.Ledger { return c.ledger }

func (c *MockClient) ChainID() string { return c.chainID }

func (c *MockClient) EscrowOf(_ context.Context, user, token string) (Balance, error) {
	b := c.ledger.Of(user, token)
	return Balance{Total: b.Total, Locked: b.Locked, Available: b.Available()}, nil
}

func (c *MockClient) Lock(_ context.Context, orderID uint64, user, token string, amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[orderID] {
		return ErrLockExists
	}
	if err := c.ledger.Lock(user, token, amount); err != nil {
		return err
	}
	c.locks[orderID] = true
	return nil
}

func (c *MockClient) lockIfNeeded(orderID uint64, user, token string, amount decimal.Decimal) error {
	if c.locks[orderID] {
		return nil
	}
	if err := c.ledger.Lock(user, token, amount); err != nil {
		return err
	}
	c.locks[orderID] = true
	return nil
}

func (c *MockClient) SettleSameChain(_ context.Context, trade SameChainTrade) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settled[trade.OrderID] {
		return nil // idempotent replay
	}
	// Both legs share this order's lock entry, so they are locked together:
	// either both are reserved or neither is.
	if !c.locks[trade.OrderID] {
		if err := c.ledger.Lock(trade.Seller.Account, trade.BaseToken, trade.BaseAmount); err != nil {
			return err
		}
		if err := c.ledger.Lock(trade.Buyer.Account, trade.QuoteToken, trade.QuoteAmount); err != nil {
			_ = c.ledger.Unlock(trade.Seller.Account, trade.BaseToken, trade.BaseAmount)
			return err
		}
		c.locks[trade.OrderID] = true
	}
	if err := c.ledger.Settle(trade.Seller.Account, trade.BaseToken, trade.BaseAmount); err != nil {
		return err
	}
	if err := c.ledger.Settle(trade.Buyer.Account, trade.QuoteToken, trade.QuoteAmount); err != nil {
		return err
	}
	c.ledger.Deposit(trade.Buyer.ReceiveWallet, trade.BaseToken, trade.BaseAmount)
	c.ledger.Deposit(trade.Seller.ReceiveWallet, trade.QuoteToken, trade.QuoteAmount)
	c.settled[trade.OrderID] = true
	return nil
}

func (c *MockClient) SettleCrossLeg(_ context.Context, trade CrossLegTrade) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settled[trade.OrderID] {
		return nil // idempotent replay
	}
	if err := c.lockIfNeeded(trade.OrderID, trade.Sender.Account, trade.Token, trade.Amount); err != nil {
		return err
	}
	if err := c.ledger.Settle(trade.Sender.Account, trade.Token, trade.Amount); err != nil {
		return err
	}
	c.ledger.Deposit(trade.ReceiveWallet, trade.Token, trade.Amount)
	c.settled[trade.OrderID] = true
	return nil
}

func (c *MockClient) ReportFailure(_ context.Context, orderID uint64, _ bool, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[orderID] = reason
	return nil
}

func (c *MockClient) EmergencyRefund(_ context.Context, orderID uint64, trade CrossLegTrade) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.settled[orderID] {
		return nil // nothing to reverse on this chain
	}
	if err := c.ledger.WithdrawAvailable(trade.ReceiveWallet, trade.Token, trade.Amount); err != nil {
		return err
	}
	c.ledger.Deposit(trade.Sender.Account, trade.Token, trade.Amount)
	delete(c.settled, orderID)
	return nil
}

func (c *MockClient) Settled(orderID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled[orderID]
}
