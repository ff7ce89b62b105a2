package api

import (
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xchain/exchange/api/responses"
)

// proxyClient forwards simple upstream GETs to the reference price feed.
var proxyClient = &http.Client{Timeout: 10 * time.Second}

// getPrice proxies GET /api/price to the configured reference price feed.
func (s *Server) getPrice(c *gin.Context) {
	pair := c.Query("currency_pair")
	if pair == "" {
		responses.BadRequest(c, "currency_pair is required")
		return
	}
	u := s.priceProxyBaseURL + "/spot/tickers?currency_pair=" + url.QueryEscape(pair)
	s.proxyUpstream(c, u)
}

// getKline proxies GET /api/kline to the configured reference candle feed.
func (s *Server) getKline(c *gin.Context) {
	pair := c.Query("currency_pair")
	if pair == "" {
		responses.BadRequest(c, "currency_pair is required")
		return
	}
	q := url.Values{}
	q.Set("currency_pair", pair)
	if interval := c.Query("interval"); interval != "" {
		q.Set("interval", interval)
	}
	if limit := c.Query("limit"); limit != "" {
		q.Set("limit", limit)
	}
	u := s.priceProxyBaseURL + "/spot/candlesticks?" + q.Encode()
	s.proxyUpstream(c, u)
}

func (s *Server) proxyUpstream(c *gin.Context, upstreamURL string) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, upstreamURL, nil)
	if err != nil {
		responses.BadGateway(c, "failed to build upstream request")
		return
	}
	req.Header.Set("Accept", "application/json")

	resp, err := proxyClient.Do(req)
	if err != nil {
		s.logger.Warn("upstream price proxy request failed", zap.Error(err))
		responses.BadGateway(c, "upstream price feed unavailable")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		responses.BadGateway(c, "failed to read upstream response")
		return
	}
	c.Data(resp.StatusCode, "application/json", body)
}
