// Package settlement drives on-chain settlement for trades the matching
// engine produces: per-trade leg management, retries, and the asymmetric-
// settlement state machine.
package settlement

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xchain/exchange/internal/book"
	"github.com/xchain/exchange/internal/chain"
	"github.com/xchain/exchange/internal/pricing"
)

var (
	// ErrInsufficientEscrow is returned by PreCheckEscrow.
	ErrInsufficientEscrow = errors.New("settlement: insufficient escrow")
	// ErrUnknownChain is returned when a trade references a chain id with
	// no configured client.
	ErrUnknownChain = errors.New("settlement: unknown chain")
)

// RetryPolicy bounds a settlement leg's retry-with-backoff attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// Orchestrator owns one Record per taker order id and drives it to a
// terminal state using the configured chain clients.
type Orchestrator struct {
	chains  map[string]chain.Client
	retry   RetryPolicy
	logger  *zap.Logger

	mu      sync.Mutex
	records map[uint64]*Record
}

func NewOrchestrator(chains map[string]chain.Client, retry RetryPolicy, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		chains:  chains,
		retry:   retry,
		logger:  logger,
		records: make(map[uint64]*Record),
	}
}

// PreCheckEscrow enforces the pre-admission rule: always check the
// submitter's escrow on from_network, regardless of side; the required
// amount is the quantity of base for asks and quantity*price of quote for
// bids.
func (o *Orchestrator) PreCheckEscrow(ctx context.Context, ord *book.Order, sym pricing.Symbol) error {
	client, ok := o.chains[ord.FromNetwork]
	if !ok {
		return ErrUnknownChain
	}

	var required decimal.Decimal
	var token string
	if ord.Side == book.Ask {
		required = ord.Quantity
		token = sym.BaseAsset
	} else {
		required = ord.Quantity.Mul(ord.Price)
		token = sym.QuoteAsset
	}

	bal, err := client.EscrowOf(ctx, ord.Account, token)
	if err != nil {
		return err
	}
	if bal.Available.LessThan(required) {
		return ErrInsufficientEscrow
	}
	return nil
}

// Record returns the settlement record for an order id, if any.
func (o *Orchestrator) Record(orderID uint64) (*Record, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.records[orderID]
	return r, ok
}

func (o *Orchestrator) setRecord(r *Record) {
	o.mu.Lock()
	o.records[r.OrderID] = r
	o.mu.Unlock()
}

// Dispatch builds the canonical trade descriptor for t and drives settlement
// to a terminal state, choosing the same-chain or cross-chain path by
// comparing each leg's networks.
func (o *Orchestrator) Dispatch(ctx context.Context, t book.Trade, sym pricing.Symbol) *Record {
	seller, buyer := t.Maker, t.Taker
	if seller.Side != book.Ask {
		seller, buyer = buyer, seller
	}

	orderID := t.Taker.OrderID
	sameChain := seller.FromNetwork == seller.ToNetwork &&
		buyer.FromNetwork == buyer.ToNetwork &&
		seller.FromNetwork == buyer.FromNetwork

	if sameChain {
		return o.dispatchSameChain(ctx, orderID, t, sym, seller, buyer)
	}
	return o.dispatchCrossChain(ctx, orderID, t, sym, seller, buyer)
}

func (o *Orchestrator) dispatchSameChain(ctx context.Context, orderID uint64, t book.Trade, sym pricing.Symbol, seller, buyer book.Party) *Record {
	rec := &Record{OrderID: orderID, CrossChain: false, SourceChain: seller.FromNetwork, Status: StatusPending}
	o.setRecord(rec)

	client, ok := o.chains[seller.FromNetwork]
	if !ok {
		rec.Status = StatusAbandoned
		rec.LastError = ErrUnknownChain.Error()
		return rec
	}

	trade := chain.SameChainTrade{
		OrderID:     orderID,
		Seller:      chain.Leg{Account: seller.Account, ReceiveWallet: seller.ReceiveWallet},
		Buyer:       chain.Leg{Account: buyer.Account, ReceiveWallet: buyer.ReceiveWallet},
		BaseToken:   sym.BaseAsset,
		QuoteToken:  sym.QuoteAsset,
		BaseAmount:  t.Quantity,
		QuoteAmount: t.Quantity.Mul(t.Price),
	}

	err := o.withRetry(ctx, rec, func() error { return client.SettleSameChain(ctx, trade) })
	if err != nil {
		rec.Status = StatusAbandoned
		rec.LastError = err.Error()
		o.logger.Error("same-chain settlement abandoned", zap.Uint64("order_id", orderID), zap.Error(err))
		return rec
	}

	rec.SourceSettled = true
	rec.SourceTS = time.Now()
	rec.Status = StatusSettled
	return rec
}

func (o *Orchestrator) dispatchCrossChain(ctx context.Context, orderID uint64, t book.Trade, sym pricing.Symbol, seller, buyer book.Party) *Record {
	rec := &Record{OrderID: orderID, CrossChain: true, SourceChain: seller.FromNetwork, DestChain: buyer.FromNetwork, Status: StatusPending}
	o.setRecord(rec)

	sourceClient, sourceOK := o.chains[seller.FromNetwork]
	destClient, destOK := o.chains[buyer.FromNetwork]
	if !sourceOK || !destOK {
		rec.Status = StatusAbandoned
		rec.LastError = ErrUnknownChain.Error()
		return rec
	}

	sourceLeg := chain.CrossLegTrade{
		OrderID:       orderID,
		Sender:        chain.Leg{Account: seller.Account},
		Token:         sym.BaseAsset,
		Amount:        t.Quantity,
		ReceiveWallet: buyer.ReceiveWallet,
		IsSource:      true,
	}
	destLeg := chain.CrossLegTrade{
		OrderID:       orderID,
		Sender:        chain.Leg{Account: buyer.Account},
		Token:         sym.QuoteAsset,
		Amount:        t.Quantity.Mul(t.Price),
		ReceiveWallet: seller.ReceiveWallet,
		IsSource:      false,
	}

	var wg sync.WaitGroup
	var sourceErr, destErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		sourceErr = o.withRetry(ctx, rec, func() error { return sourceClient.SettleCrossLeg(ctx, sourceLeg) })
	}()
	go func() {
		defer wg.Done()
		destErr = o.withRetry(ctx, rec, func() error { return destClient.SettleCrossLeg(ctx, destLeg) })
	}()
	wg.Wait()

	if sourceErr == nil {
		rec.SourceSettled = true
		rec.SourceTS = time.Now()
	} else {
		_ = sourceClient.ReportFailure(ctx, orderID, true, sourceErr.Error())
	}
	if destErr == nil {
		rec.DestSettled = true
		rec.DestTS = time.Now()
	} else {
		_ = destClient.ReportFailure(ctx, orderID, false, destErr.Error())
	}

	switch {
	case rec.BothSettled():
		rec.Status = StatusSettled
	case rec.Asymmetric():
		rec.Status = StatusAsymmetricDetected
		o.refund(ctx, rec, sourceClient, destClient, sourceLeg, destLeg)
	default:
		rec.Status = StatusAbandoned
		rec.LastError = "both legs failed"
		o.logger.Error("cross-chain settlement abandoned, both legs failed", zap.Uint64("order_id", orderID))
	}
	return rec
}

// refund reverses whichever leg settled back to its original sender,
// driving an AsymmetricDetected record to Refunded.
func (o *Orchestrator) refund(ctx context.Context, rec *Record, sourceClient, destClient chain.Client, sourceLeg, destLeg chain.CrossLegTrade) {
	var err error
	if rec.SourceSettled {
		err = o.withRetry(ctx, rec, func() error { return sourceClient.EmergencyRefund(ctx, rec.OrderID, sourceLeg) })
	} else {
		err = o.withRetry(ctx, rec, func() error { return destClient.EmergencyRefund(ctx, rec.OrderID, destLeg) })
	}
	if err != nil {
		rec.Status = StatusAbandoned
		rec.LastError = err.Error()
		o.logger.Error("emergency refund failed", zap.Uint64("order_id", rec.OrderID), zap.Error(err))
		return
	}
	rec.Refunded = true
	rec.Status = StatusRefunded
}

func (o *Orchestrator) withRetry(ctx context.Context, rec *Record, op func() error) error {
	backoff := o.retry.BaseBackoff
	var err error
	for attempt := 0; attempt < o.retry.MaxAttempts; attempt++ {
		rec.Attempts++
		err = op()
		if err == nil {
			return nil
		}
		if attempt == o.retry.MaxAttempts-1 {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return err
}
