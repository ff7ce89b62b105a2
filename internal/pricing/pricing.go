// Package pricing provides fixed-precision decimal helpers shared by the
// matching engine and the escrow/settlement layers. Prices and quantities
// never touch native floats.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Symbol describes a traded pair and the per-chain token addresses it
// resolves to, plus the admission rules (tick size, minimum quantity)
// applied at order validation time.
type Symbol struct {
	Name         string
	BaseAsset    string
	QuoteAsset   string
	TickSize     decimal.Decimal
	MinQuantity  decimal.Decimal
	TokenAddress map[string]ChainTokens // chain id -> token addresses for this symbol
}

// ChainTokens holds the resolved ERC-20 addresses for base and quote assets
// on one chain.
type ChainTokens struct {
	BaseAddress  string
	QuoteAddress string
	Decimals     int32
}

// Table resolves symbol names to their configuration. It is built once at
// startup from configuration and treated as read-only thereafter.
type Table struct {
	symbols map[string]Symbol
}

func NewTable(symbols []Symbol) *Table {
	t := &Table{symbols: make(map[string]Symbol, len(symbols))}
	for _, s := range symbols {
		t.symbols[s.Name] = s
	}
	return t
}

func (t *Table) Lookup(name string) (Symbol, bool) {
	s, ok := t.symbols[name]
	return s, ok
}

// ParseDecimal converts a request-boundary string into a decimal, rejecting
// anything that isn't a well-formed fixed-precision number.
func ParseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty decimal")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d, nil
}

// ValidateTick reports whether price is an exact multiple of the symbol's
// tick size. A zero tick size disables the check (market orders have no
// price to validate).
func (s Symbol) ValidateTick(price decimal.Decimal) bool {
	if s.TickSize.IsZero() {
		return true
	}
	mod := price.Mod(s.TickSize)
	return mod.IsZero()
}

// ValidateMinQuantity reports whether qty meets the symbol's minimum order size.
func (s Symbol) ValidateMinQuantity(qty decimal.Decimal) bool {
	if s.MinQuantity.IsZero() {
		return true
	}
	return qty.GreaterThanOrEqual(s.MinQuantity)
}

// TokensFor resolves the base/quote token addresses for this symbol on chainID.
func (s Symbol) TokensFor(chainID string) (ChainTokens, bool) {
	ct, ok := s.TokenAddress[chainID]
	return ct, ok
}
