// Package escrow implements the off-chain mirror of a single chain's
// authoritative on-chain escrow balances. The real on-chain state lives in
// the settlement contract; this ledger backs the in-memory chain client
// used for tests and local development, and is the shape the orchestrator's
// pre-admission checks read against.
package escrow

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientAvailable is returned by operations that would drive
	// available below zero.
	ErrInsufficientAvailable = errors.New("escrow: insufficient available balance")
)

// Balance holds one (user, token) entry. Invariant: Total >= Locked >= 0.
type Balance struct {
	Total  decimal.Decimal
	Locked decimal.Decimal
}

// Available is Total - Locked.
func (b Balance) Available() decimal.Decimal {
	return b.Total.Sub(b.Locked)
}

type accountKey struct {
	user  string
	token string
}

// Ledger is one chain's escrow view: (user, token) -> {total, locked}.
type Ledger struct {
	mu       sync.Mutex
	balances map[accountKey]*Balance
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[accountKey]*Balance)}
}

func (l *Ledger) entry(user, token string) *Balance {
	k := accountKey{user, token}
	b, ok := l.balances[k]
	if !ok {
		b = &Balance{Total: decimal.Zero, Locked: decimal.Zero}
		l.balances[k] = b
	}
	return b
}

// Of returns a snapshot of the (user, token) balance.
func (l *Ledger) Of(user, token string) Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.entry(user, token)
}

// Deposit credits total. Always succeeds.
func (l *Ledger) Deposit(user, token string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entry(user, token).Total = l.entry(user, token).Total.Add(amount)
}

// WithdrawAvailable debits total, requiring amount <= available.
func (l *Ledger) WithdrawAvailable(user, token string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.entry(user, token)
	if amount.GreaterThan(b.Available()) {
		return ErrInsufficientAvailable
	}
	b.Total = b.Total.Sub(amount)
	return nil
}

// Lock moves amount from available to locked, requiring amount <= available.
func (l *Ledger) Lock(user, token string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.entry(user, token)
	if amount.GreaterThan(b.Available()) {
		return ErrInsufficientAvailable
	}
	b.Locked = b.Locked.Add(amount)
	return nil
}

// Settle debits both total and locked by amount, completing a transfer out
// of this user's locked funds. Requires amount <= locked.
func (l *Ledger) Settle(user, token string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.entry(user, token)
	if amount.GreaterThan(b.Locked) {
		return ErrInsufficientAvailable
	}
	b.Total = b.Total.Sub(amount)
	b.Locked = b.Locked.Sub(amount)
	return nil
}

// Unlock reverses a Lock without transferring funds, returning amount from
// locked to available. Requires amount <= locked.
func (l *Ledger) Unlock(user, token string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.entry(user, token)
	if amount.GreaterThan(b.Locked) {
		return ErrInsufficientAvailable
	}
	b.Locked = b.Locked.Sub(amount)
	return nil
}
