package api

import (
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiter "github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/xchain/exchange/internal/book"
	"github.com/xchain/exchange/internal/chain"
	"github.com/xchain/exchange/internal/pricing"
	"github.com/xchain/exchange/internal/settlement"
)

// Server is the HTTP surface for order admission, book/trade queries, and
// the reference-price proxy and health endpoints.
type Server struct {
	router *gin.Engine
	logger *zap.Logger

	books      *book.Registry
	settlement *settlement.Orchestrator
	chains     map[string]chain.Client
	symbols    *pricing.Table

	priceProxyBaseURL string
	chainAddresses    map[string]string // chain name -> settlement contract address
}

// NewServer wires the gin engine with the standard middleware stack
// (ginzap, recovery, otelgin, cors, rate limiting) and registers every
// order-admission, book/trade-query, and proxy/health route.
func NewServer(
	logger *zap.Logger,
	books *book.Registry,
	orchestrator *settlement.Orchestrator,
	chains map[string]chain.Client,
	symbols *pricing.Table,
	priceProxyBaseURL string,
	chainAddresses map[string]string,
) *Server {
	s := &Server{
		logger:            logger,
		books:             books,
		settlement:        orchestrator,
		chains:            chains,
		symbols:           symbols,
		priceProxyBaseURL: priceProxyBaseURL,
		chainAddresses:    chainAddresses,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(otelgin.Middleware("xchain-api"))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	store := memory.NewStore()
	rate, _ := limiter.NewRateFromFormatted("600-M")
	router.Use(ginlimiter.NewMiddleware(limiter.New(store, rate)))

	s.router = router
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	{
		api.POST("/register_order", s.registerOrder)
		api.POST("/register_order_cross", s.registerOrderCross)
		api.POST("/cancel_order", s.cancelOrder)
		api.POST("/orderbook", s.orderBookSameChain)
		api.POST("/orderbook_cross", s.orderBookCross)
		api.POST("/order", s.getOrder)
		api.POST("/get_best_order", s.getBestOrder)
		api.POST("/check_available_funds", s.checkAvailableFunds)

		api.GET("/price", s.getPrice)
		api.GET("/kline", s.getKline)
		api.GET("/settlement_health", s.settlementHealth)
		api.GET("/get_settlement_address", s.getSettlementAddress)
		api.GET("/order_history", s.orderHistorySameChain)
		api.GET("/order_history_cross", s.orderHistoryCross)
	}
}

// Start runs the HTTP server on addr, blocking until it returns an error.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting API server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router exposes the underlying gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
