// Package chain defines the thin interface to one EVM-compatible chain's
// settlement contract and two implementations: a real go-ethereum-backed
// client (evm.go) and a deterministic in-memory client for tests and local
// development (mock.go).
package chain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadySettled names a replay of a prior successful write for the
	// same (orderID, chainID). The clients in this package treat such a
	// replay as a no-op and return nil rather than this error.
	ErrAlreadySettled = errors.New("chain: already settled")
	// ErrLockExists is returned by Lock when a lock already exists for the
	// requested (orderID, chainID).
	ErrLockExists = errors.New("chain: lock already exists for order")
)

// Leg is one side's settlement-relevant identity: who sends or receives and
// where the proceeds land.
type Leg struct {
	Account       string
	ReceiveWallet string
}

// SameChainTrade describes a trade whose both legs settle on one chain.
type SameChainTrade struct {
	OrderID     uint64
	Seller      Leg // sends BaseToken
	Buyer       Leg // sends QuoteToken
	BaseToken   string
	QuoteToken  string
	BaseAmount  decimal.Decimal
	QuoteAmount decimal.Decimal
}

// CrossLegTrade describes one leg of a cross-chain trade: a single transfer
// of Token from Sender to Sender's counterparty's receive wallet. IsSource
// distinguishes the base-asset leg (true) from the quote-asset leg (false),
// since the two chains' contracts enforce different checks per leg.
type CrossLegTrade struct {
	OrderID       uint64
	Sender        Leg
	Token         string
	Amount        decimal.Decimal
	ReceiveWallet string
	IsSource      bool
}

// Client is the set of operations available on one EVM chain's settlement
// contract. Every write carries an order id and is idempotent per
// (order_id, chain_id).
type Client interface {
	ChainID() string

	// EscrowOf is a read-only balance lookup.
	EscrowOf(ctx context.Context, user, token string) (Balance, error)

	// Lock reserves amount of token for user under orderId. Fails if
	// available < amount, or if a lock already exists for this order on
	// this chain (ErrLockExists).
	Lock(ctx context.Context, orderID uint64, user, token string, amount decimal.Decimal) error

	// SettleSameChain atomically locks both legs if needed, then transfers
	// both legs. Idempotent per orderID.
	SettleSameChain(ctx context.Context, trade SameChainTrade) error

	// SettleCrossLeg lazily locks and transfers one leg of a cross-chain
	// trade. Idempotent per (orderID, ChainID()).
	SettleCrossLeg(ctx context.Context, trade CrossLegTrade) error

	// ReportFailure records a permanent failure for one leg, identified as
	// the source or destination leg of the trade. This client only records
	// its own leg's state; the orchestrator performs the XOR check for
	// asymmetric settlement across both chains.
	ReportFailure(ctx context.Context, orderID uint64, isSourceChain bool, reason string) error

	// EmergencyRefund reverses a previously settled leg back to its
	// original sender. Only valid when this chain's leg settled and the
	// opposite chain's leg did not.
	EmergencyRefund(ctx context.Context, orderID uint64, trade CrossLegTrade) error

	// Settled reports whether orderID has a recorded settlement on this
	// chain (used by the orchestrator's asymmetry check).
	Settled(orderID uint64) bool
}

// Balance mirrors the on-chain escrowBalances/lockedBalances pair for one
// (user, token).
type Balance struct {
	Total     decimal.Decimal
	Locked    decimal.Decimal
	Available decimal.Decimal
}
