package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xchain/exchange/api"
	"github.com/xchain/exchange/internal/book"
	"github.com/xchain/exchange/internal/chain"
	"github.com/xchain/exchange/internal/config"
	"github.com/xchain/exchange/internal/settlement"
	"github.com/xchain/exchange/pkg/logger"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 normal, 1 configuration error,
// 2 unrecoverable panic.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer zapLogger.Sync()

	defer func() {
		if r := recover(); r != nil {
			zapLogger.Error("unrecoverable panic", zap.Any("panic", r))
			os.Exit(2)
		}
	}()

	symbols, err := config.ToSymbolTable(cfg.Symbols)
	if err != nil {
		zapLogger.Error("failed to build symbol table", zap.Error(err))
		return 1
	}

	chains := make(map[string]chain.Client, len(cfg.Chains))
	chainAddresses := make(map[string]string, len(cfg.Chains))
	ctx := context.Background()
	for name, cc := range cfg.Chains {
		if cc.RPCURL == "" {
			zapLogger.Warn("chain has no RPC URL configured, using an in-memory mock client", zap.String("chain", name))
			chains[name] = chain.NewMockClient(name)
			chainAddresses[name] = cc.ContractAddress
			continue
		}
		client, err := chain.DialEVM(ctx, cc.ChainID, cc.RPCURL, cc.ContractAddress, cc.OperatorKey, logger.ForChain(zapLogger, name))
		if err != nil {
			zapLogger.Error("failed to dial chain", zap.String("chain", name), zap.Error(err))
			return 1
		}
		chains[name] = client
		chainAddresses[name] = cc.ContractAddress
	}

	books := book.NewRegistry(cfg.AllowSelfTrade)
	orchestrator := settlement.NewOrchestrator(chains, settlement.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseBackoff: cfg.RetryBaseBackoff,
	}, zapLogger)

	var queue *settlement.Queue
	shutdownCtx, cancelQueue := context.WithCancel(context.Background())
	if len(cfg.KafkaBrokers) > 0 {
		queue = settlement.NewQueue(cfg.KafkaBrokers, cfg.SettlementTopic, orchestrator, symbols, zapLogger)
		go queue.Run(shutdownCtx)
	}

	server := api.NewServer(zapLogger, books, orchestrator, chains, symbols, cfg.PriceProxyBaseURL, chainAddresses)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.HTTPAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		zapLogger.Error("API server exited", zap.Error(err))
		cancelQueue()
		return 1
	case <-quit:
		zapLogger.Info("shutting down")
		cancelQueue()
		if queue != nil {
			if err := queue.Close(); err != nil {
				zapLogger.Error("failed to close settlement queue", zap.Error(err))
			}
		}
		zapLogger.Info("server exited properly")
		return 0
	}
}
