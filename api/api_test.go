package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xchain/exchange/api"
	"github.com/xchain/exchange/internal/book"
	"github.com/xchain/exchange/internal/chain"
	"github.com/xchain/exchange/internal/pricing"
	"github.com/xchain/exchange/internal/settlement"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func postPayload(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(payload)
	form := url.Values{"payload": {string(raw)}}
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func setupServer(t *testing.T) (*gin.Engine, *chain.MockClient) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	eth := chain.NewMockClient("eth")
	chains := map[string]chain.Client{"eth": eth}

	table := pricing.NewTable([]pricing.Symbol{
		{Name: "ETH_USDC", BaseAsset: "ETH", QuoteAsset: "USDC", TickSize: decimal.Zero, MinQuantity: decimal.Zero},
	})
	books := book.NewRegistry(true)
	orch := settlement.NewOrchestrator(chains, settlement.RetryPolicy{MaxAttempts: 1, BaseBackoff: 0}, zap.NewNop())

	srv := api.NewServer(logger, books, orch, chains, table, "https://price.example", map[string]string{"eth": "0xcontract"})
	return srv.Router(), eth
}

func TestRegisterOrder_SimpleMatch(t *testing.T) {
	router, eth := setupServer(t)
	eth.Ledger().Deposit("seller", "ETH", decimal.NewFromInt(10))
	eth.Ledger().Deposit("buyer", "USDC", decimal.NewFromInt(1000))

	w := postPayload(router, "/api/register_order", map[string]string{
		"account":       "seller",
		"baseAsset":     "ETH",
		"quoteAsset":    "USDC",
		"side":          "ask",
		"type":          "limit",
		"price":         "100",
		"quantity":      "5",
		"fromNetwork":   "eth",
		"toNetwork":     "eth",
		"receiveWallet": "seller-wallet",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postPayload(router, "/api/register_order", map[string]string{
		"account":       "buyer",
		"baseAsset":     "ETH",
		"quoteAsset":    "USDC",
		"side":          "bid",
		"type":          "limit",
		"price":         "100",
		"quantity":      "3",
		"fromNetwork":   "eth",
		"toNetwork":     "eth",
		"receiveWallet": "buyer-wallet",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)

	var data struct {
		Order struct {
			Trades []struct {
				Quantity string `json:"quantity"`
			} `json:"trades"`
			SettlementInfo []struct {
				Status string `json:"status"`
			} `json:"settlement_info"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Order.Trades, 1)
	assert.Equal(t, "3", data.Order.Trades[0].Quantity)
	require.Len(t, data.Order.SettlementInfo, 1)
	assert.Equal(t, "settled", data.Order.SettlementInfo[0].Status)
}

func TestRegisterOrder_InsufficientEscrowRejected(t *testing.T) {
	router, _ := setupServer(t)

	w := postPayload(router, "/api/register_order", map[string]string{
		"account":       "seller",
		"baseAsset":     "ETH",
		"quoteAsset":    "USDC",
		"side":          "ask",
		"type":          "limit",
		"price":         "100",
		"quantity":      "5",
		"fromNetwork":   "eth",
		"toNetwork":     "eth",
		"receiveWallet": "seller-wallet",
	})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestRegisterOrder_CrossChainVenueMismatchRejected(t *testing.T) {
	router, eth := setupServer(t)
	eth.Ledger().Deposit("seller", "ETH", decimal.NewFromInt(10))

	w := postPayload(router, "/api/register_order", map[string]string{
		"account":       "seller",
		"baseAsset":     "ETH",
		"quoteAsset":    "USDC",
		"side":          "ask",
		"type":          "limit",
		"price":         "100",
		"quantity":      "5",
		"fromNetwork":   "eth",
		"toNetwork":     "polygon",
		"receiveWallet": "seller-wallet",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelOrderAndLookup(t *testing.T) {
	router, eth := setupServer(t)
	eth.Ledger().Deposit("seller", "ETH", decimal.NewFromInt(10))

	postPayload(router, "/api/register_order", map[string]string{
		"account":       "seller",
		"baseAsset":     "ETH",
		"quoteAsset":    "USDC",
		"side":          "ask",
		"type":          "limit",
		"price":         "100",
		"quantity":      "5",
		"fromNetwork":   "eth",
		"toNetwork":     "eth",
		"receiveWallet": "seller-wallet",
	})

	w := postPayload(router, "/api/order", map[string]interface{}{"orderId": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = postPayload(router, "/api/cancel_order", map[string]interface{}{
		"orderId": 1, "side": "ask", "baseAsset": "ETH", "quoteAsset": "USDC",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postPayload(router, "/api/order", map[string]interface{}{"orderId": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckAvailableFunds(t *testing.T) {
	router, eth := setupServer(t)
	eth.Ledger().Deposit("seller", "ETH", decimal.NewFromInt(10))

	w := postPayload(router, "/api/check_available_funds", map[string]string{"account": "seller", "asset": "ETH"})
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var data struct {
		Available string `json:"available"`
		Total     string `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "10", data.Available)
	assert.Equal(t, "10", data.Total)
}

func TestSettlementHealth(t *testing.T) {
	router, _ := setupServer(t)
	req, _ := http.NewRequest(http.MethodGet, "/api/settlement_health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
