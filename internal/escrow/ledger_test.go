package escrow

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

func TestLedger_DepositAndAvailable(t *testing.T) {
	l := NewLedger()
	l.Deposit("alice", "USDC", d("100"))

	bal := l.Of("alice", "USDC")
	assert.True(t, bal.Total.Equal(d("100")))
	assert.True(t, bal.Available().Equal(d("100")))
}

func TestLedger_LockReducesAvailableNotTotal(t *testing.T) {
	l := NewLedger()
	l.Deposit("alice", "USDC", d("100"))
	require.NoError(t, l.Lock("alice", "USDC", d("40")))

	bal := l.Of("alice", "USDC")
	assert.True(t, bal.Total.Equal(d("100")))
	assert.True(t, bal.Locked.Equal(d("40")))
	assert.True(t, bal.Available().Equal(d("60")))
}

func TestLedger_LockInsufficientAvailable(t *testing.T) {
	l := NewLedger()
	l.Deposit("alice", "USDC", d("10"))
	err := l.Lock("alice", "USDC", d("11"))
	assert.ErrorIs(t, err, ErrInsufficientAvailable)
}

func TestLedger_SettleDebitsTotalAndLocked(t *testing.T) {
	l := NewLedger()
	l.Deposit("alice", "USDC", d("100"))
	require.NoError(t, l.Lock("alice", "USDC", d("100")))
	require.NoError(t, l.Settle("alice", "USDC", d("100")))

	bal := l.Of("alice", "USDC")
	assert.True(t, bal.Total.IsZero())
	assert.True(t, bal.Locked.IsZero())
}

func TestLedger_SettleMoreThanLockedFails(t *testing.T) {
	l := NewLedger()
	l.Deposit("alice", "USDC", d("100"))
	require.NoError(t, l.Lock("alice", "USDC", d("50")))
	err := l.Settle("alice", "USDC", d("51"))
	assert.ErrorIs(t, err, ErrInsufficientAvailable)
}

func TestLedger_UnlockReversesLock(t *testing.T) {
	l := NewLedger()
	l.Deposit("alice", "USDC", d("100"))
	require.NoError(t, l.Lock("alice", "USDC", d("30")))
	require.NoError(t, l.Unlock("alice", "USDC", d("30")))

	bal := l.Of("alice", "USDC")
	assert.True(t, bal.Locked.IsZero())
	assert.True(t, bal.Available().Equal(d("100")))
}

func TestLedger_WithdrawAvailableRespectsLocked(t *testing.T) {
	l := NewLedger()
	l.Deposit("alice", "USDC", d("100"))
	require.NoError(t, l.Lock("alice", "USDC", d("60")))

	err := l.WithdrawAvailable("alice", "USDC", d("50"))
	assert.ErrorIs(t, err, ErrInsufficientAvailable)

	require.NoError(t, l.WithdrawAvailable("alice", "USDC", d("40")))
	bal := l.Of("alice", "USDC")
	assert.True(t, bal.Total.Equal(d("60")))
}
