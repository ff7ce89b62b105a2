package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xchain/exchange/api/responses"
	"github.com/xchain/exchange/internal/book"
	"github.com/xchain/exchange/internal/pricing"
	"github.com/xchain/exchange/internal/settlement"
	"github.com/xchain/exchange/pkg/errors"
	"github.com/xchain/exchange/pkg/metrics"
)

var validate = validator.New()

// zeroAddress is a well-formed placeholder address used only to probe RPC
// liveness in settlementHealth; it is never used for real balance reads.
const zeroAddress = "0x0000000000000000000000000000000000000000"

// bindPayload decodes the form-encoded `payload` field as JSON into dst and
// runs struct-tag validation.
func bindPayload(c *gin.Context, dst interface{}) error {
	raw := c.PostForm("payload")
	if raw == "" {
		return fmt.Errorf("payload field is required")
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}
	return validate.Struct(dst)
}

func (s *Server) resolveSymbol(baseAsset, quoteAsset string) (pricing.Symbol, bool) {
	return s.symbols.Lookup(baseAsset + "_" + quoteAsset)
}

// buildOrder validates and converts a registerOrderRequest into a book.Order,
// resolving type, price, and quantity against the symbol's admission rules.
func (s *Server) buildOrder(req registerOrderRequest, sym pricing.Symbol) (*book.Order, *errors.ProblemDetails) {
	typ := book.Limit
	if req.Type == "market" {
		typ = book.Market
	}

	qty, err := pricing.ParseDecimal(req.Quantity)
	if err != nil || qty.LessThanOrEqual(decimal.Zero) {
		return nil, errors.NewValidationError("quantity must be a positive decimal", "")
	}
	if !sym.ValidateMinQuantity(qty) {
		return nil, errors.NewValidationError("quantity below symbol minimum", "")
	}

	var price decimal.Decimal
	if typ == book.Limit {
		price, err = pricing.ParseDecimal(req.Price)
		if err != nil || price.LessThanOrEqual(decimal.Zero) {
			return nil, errors.NewValidationError("price must be a positive decimal for limit orders", "")
		}
		if !sym.ValidateTick(price) {
			return nil, errors.NewValidationError("price is not a multiple of the symbol's tick size", "")
		}
	}

	side := book.Bid
	if req.Side == "ask" {
		side = book.Ask
	}

	return &book.Order{
		Account:       req.Account,
		BaseAsset:     req.BaseAsset,
		QuoteAsset:    req.QuoteAsset,
		Side:          side,
		Type:          typ,
		Price:         price,
		Quantity:      qty,
		FromNetwork:   req.FromNetwork,
		ToNetwork:     req.ToNetwork,
		ReceiveWallet: req.ReceiveWallet,
	}, nil
}

// admitOrder is the shared admission path for register_order and
// register_order_cross: resolve symbol, validate, pre-check escrow, match,
// dispatch settlement for each produced trade.
func (s *Server) admitOrder(c *gin.Context, crossChain bool) {
	var req registerOrderRequest
	if err := bindPayload(c, &req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	sym, ok := s.resolveSymbol(req.BaseAsset, req.QuoteAsset)
	if !ok {
		responses.Error(c, errors.NewValidationError("unknown symbol", c.Request.URL.Path))
		return
	}

	ord, problem := s.buildOrder(req, sym)
	if problem != nil {
		responses.Error(c, problem)
		return
	}
	if ord.CrossChain() != crossChain {
		responses.Error(c, errors.NewValidationError("fromNetwork/toNetwork do not match this endpoint's venue", c.Request.URL.Path))
		return
	}

	ctx := c.Request.Context()
	if err := s.settlement.PreCheckEscrow(ctx, ord, sym); err != nil {
		switch err {
		case settlement.ErrInsufficientEscrow:
			responses.InsufficientEscrow(c, "submitter's escrow on from_network is insufficient for this order")
		case settlement.ErrUnknownChain:
			responses.Error(c, errors.NewValidationError("fromNetwork is not a configured chain", c.Request.URL.Path))
		default:
			responses.BadGateway(c, err.Error())
		}
		return
	}

	start := time.Now()
	b := s.books.BookForOrder(ord)
	trades := b.AddOrder(ord)
	metrics.OrderLatency.Observe(time.Since(start).Seconds())
	metrics.OrdersProcessed.WithLabelValues(ord.Side.String(), b.Symbol).Inc()

	tradeResps := make([]tradeResponse, 0, len(trades))
	settlementInfos := make([]settlementInfo, 0, len(trades))
	for _, t := range trades {
		metrics.TradesExecuted.WithLabelValues(b.Symbol).Inc()
		tradeResps = append(tradeResps, tradeResponse{
			Price:        t.Price.String(),
			Quantity:     t.Quantity.String(),
			MakerOrderID: t.Maker.OrderID,
			TakerOrderID: t.Taker.OrderID,
		})

		rec := s.settlement.Dispatch(ctx, t, sym)
		metrics.SettlementOutcomes.WithLabelValues(rec.Status.String()).Inc()
		settlementInfos = append(settlementInfos, settlementInfo{
			Status:      rec.Status.String(),
			SourceChain: rec.SourceChain,
			DestChain:   rec.DestChain,
		})
	}

	responses.Success(c, registerOrderResponse{
		StatusCode: 1,
		Order: orderResult{
			OrderID:        ord.ID,
			Trades:         tradeResps,
			RemainingQty:   ord.Quantity.String(),
			SettlementInfo: settlementInfos,
		},
	})
}

func (s *Server) registerOrder(c *gin.Context)      { s.admitOrder(c, false) }
func (s *Server) registerOrderCross(c *gin.Context) { s.admitOrder(c, true) }

func (s *Server) cancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if err := bindPayload(c, &req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}
	if err := s.books.CancelOrder(req.BaseAsset, req.QuoteAsset, req.OrderID); err != nil {
		responses.NotFound(c, "order not found")
		return
	}
	responses.Success(c, gin.H{"status_code": 1})
}

func (s *Server) orderBook(c *gin.Context, crossChain bool) {
	var req orderBookRequest
	if err := bindPayload(c, &req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}
	b := s.books.BookFor(req.Symbol, crossChain)
	bids, asks := b.Snapshot(0)
	responses.Success(c, gin.H{"bids": bids, "asks": asks})
}

func (s *Server) orderBookSameChain(c *gin.Context) { s.orderBook(c, false) }
func (s *Server) orderBookCross(c *gin.Context)     { s.orderBook(c, true) }

func (s *Server) getOrder(c *gin.Context) {
	var req orderLookupRequest
	if err := bindPayload(c, &req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}
	ord, ok := s.books.LookupOrder(req.OrderID)
	if !ok {
		responses.NotFound(c, "order not found")
		return
	}
	responses.Success(c, gin.H{
		"orderId":       ord.ID,
		"account":       ord.Account,
		"baseAsset":     ord.BaseAsset,
		"quoteAsset":    ord.QuoteAsset,
		"side":          ord.Side.String(),
		"price":         ord.Price.String(),
		"quantity":      ord.Quantity.String(),
		"fromNetwork":   ord.FromNetwork,
		"toNetwork":     ord.ToNetwork,
		"receiveWallet": ord.ReceiveWallet,
		"timestamp":     ord.Timestamp,
	})
}

func (s *Server) getBestOrder(c *gin.Context) {
	var req bestOrderRequest
	if err := bindPayload(c, &req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}
	side := book.Bid
	if req.Side == "ask" {
		side = book.Ask
	}
	price, qty, ok := s.books.BestOrder(req.BaseAsset, req.QuoteAsset, side)
	if !ok {
		responses.NotFound(c, "no resting orders on that side")
		return
	}
	responses.Success(c, gin.H{"price": price.String(), "quantity": qty.String()})
}

// checkAvailableFunds sums escrow across every configured chain, since the
// request names an account and asset but no network.
func (s *Server) checkAvailableFunds(c *gin.Context) {
	var req fundsRequest
	if err := bindPayload(c, &req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	total, locked, available := decimal.Zero, decimal.Zero, decimal.Zero
	for _, cl := range s.chains {
		bal, err := cl.EscrowOf(c.Request.Context(), req.Account, req.Asset)
		if err != nil {
			continue
		}
		total = total.Add(bal.Total)
		locked = locked.Add(bal.Locked)
		available = available.Add(bal.Available)
	}
	responses.Success(c, gin.H{
		"available": available.String(),
		"locked":    locked.String(),
		"total":     total.String(),
	})
}

func (s *Server) settlementHealth(c *gin.Context) {
	type chainHealth struct {
		Chain string `json:"chain"`
		OK    bool   `json:"ok"`
	}
	details := make([]chainHealth, 0, len(s.chains))
	allOK := true
	for name, cl := range s.chains {
		_, err := cl.EscrowOf(c.Request.Context(), zeroAddress, zeroAddress)
		ok := err == nil
		if !ok {
			allOK = false
		}
		details = append(details, chainHealth{Chain: name, OK: ok})
	}
	responses.Success(c, gin.H{"ok": allOK, "chains": details})
}

func (s *Server) getSettlementAddress(c *gin.Context) {
	network := c.Query("network")
	cfg, ok := s.chainAddresses[network]
	if !ok {
		responses.NotFound(c, "unknown network")
		return
	}
	responses.Success(c, gin.H{"settlement_address": cfg})
}

func (s *Server) orderHistory(c *gin.Context, crossChain bool) {
	symbol := c.Query("symbol")
	if symbol == "" {
		responses.BadRequest(c, "symbol is required")
		return
	}
	limit := 200
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	b := s.books.BookFor(symbol, crossChain)
	responses.Success(c, gin.H{"history": b.Tape(limit)})
}

func (s *Server) orderHistorySameChain(c *gin.Context) { s.orderHistory(c, false) }
func (s *Server) orderHistoryCross(c *gin.Context)     { s.orderHistory(c, true) }
