// Package config loads server configuration from a .env file and
// environment variables via viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/xchain/exchange/internal/pricing"
)

// ChainConfig holds one supported chain's RPC URL, chain id, settlement
// contract address, and operator signing key.
type ChainConfig struct {
	Name            string
	RPCURL          string
	ChainID         string
	ContractAddress string
	OperatorKey     string
}

// SymbolConfig is one traded pair's admission rules and its base/quote
// token addresses on every supported chain, with decimals, tick size, and
// minimum order quantity.
type SymbolConfig struct {
	Name        string                      `mapstructure:"name"`
	BaseAsset   string                      `mapstructure:"base_asset"`
	QuoteAsset  string                      `mapstructure:"quote_asset"`
	TickSize    string                      `mapstructure:"tick_size"`
	MinQuantity string                      `mapstructure:"min_quantity"`
	Chains      map[string]SymbolChainConfig `mapstructure:"chains"`
}

type SymbolChainConfig struct {
	BaseAddress  string `mapstructure:"base_address"`
	QuoteAddress string `mapstructure:"quote_address"`
	Decimals     int32  `mapstructure:"decimals"`
}

// Config is the fully-resolved server configuration.
type Config struct {
	HTTPAddr          string
	LogLevel          string
	AllowSelfTrade    bool
	PriceProxyBaseURL string
	KafkaBrokers      []string
	SettlementTopic   string
	RetryMaxAttempts  int
	RetryBaseBackoff  time.Duration
	Chains            map[string]ChainConfig
	Symbols           []SymbolConfig
}

// Load reads .env (if present), then environment variables, then the
// optional symbols YAML file, and validates the result. Callers should
// exit(1) on error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8001")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ALLOW_SELF_TRADE", true)
	v.SetDefault("PRICE_PROXY_BASE_URL", "https://api.gateio.ws/api/v4")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("SETTLEMENT_TOPIC", "settlement-dispatch")
	v.SetDefault("RETRY_MAX_ATTEMPTS", 5)
	v.SetDefault("RETRY_BASE_BACKOFF_MS", 500)

	cfg := &Config{
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		AllowSelfTrade:    v.GetBool("ALLOW_SELF_TRADE"),
		PriceProxyBaseURL: v.GetString("PRICE_PROXY_BASE_URL"),
		SettlementTopic:   v.GetString("SETTLEMENT_TOPIC"),
		RetryMaxAttempts:  v.GetInt("RETRY_MAX_ATTEMPTS"),
		RetryBaseBackoff:  time.Duration(v.GetInt("RETRY_BASE_BACKOFF_MS")) * time.Millisecond,
		Chains:            map[string]ChainConfig{},
	}
	if brokers := v.GetString("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	names := v.GetString("CHAIN_NAMES")
	if names == "" {
		return nil, fmt.Errorf("config: CHAIN_NAMES must list at least one chain (comma separated)")
	}
	for _, name := range strings.Split(names, ",") {
		prefix := "CHAIN_" + strings.ToUpper(name) + "_"
		cfg.Chains[name] = ChainConfig{
			Name:            name,
			RPCURL:          os.Getenv(prefix + "RPC_URL"),
			ChainID:         os.Getenv(prefix + "CHAIN_ID"),
			ContractAddress: os.Getenv(prefix + "CONTRACT_ADDRESS"),
			OperatorKey:     os.Getenv(prefix + "OPERATOR_KEY"),
		}
	}

	if symbolsPath := v.GetString("SYMBOLS_CONFIG_PATH"); symbolsPath != "" {
		sv := viper.New()
		sv.SetConfigFile(symbolsPath)
		if err := sv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading symbols file: %w", err)
		}
		var symbols []SymbolConfig
		if err := sv.UnmarshalKey("symbols", &symbols); err != nil {
			return nil, fmt.Errorf("config: parsing symbols file: %w", err)
		}
		cfg.Symbols = symbols
	}

	return cfg, nil
}

// ToSymbolTable converts the loaded symbol configuration into the decimal
// pricing table the book and settlement layers use.
func ToSymbolTable(symbols []SymbolConfig) (*pricing.Table, error) {
	out := make([]pricing.Symbol, 0, len(symbols))
	for _, s := range symbols {
		tick, err := pricing.ParseDecimal(s.TickSize)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: tick_size: %w", s.Name, err)
		}
		minQty, err := pricing.ParseDecimal(s.MinQuantity)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: min_quantity: %w", s.Name, err)
		}
		tokens := make(map[string]pricing.ChainTokens, len(s.Chains))
		for chainName, ct := range s.Chains {
			tokens[chainName] = pricing.ChainTokens{
				BaseAddress:  ct.BaseAddress,
				QuoteAddress: ct.QuoteAddress,
				Decimals:     ct.Decimals,
			}
		}
		out = append(out, pricing.Symbol{
			Name:         s.Name,
			BaseAsset:    s.BaseAsset,
			QuoteAsset:   s.QuoteAsset,
			TickSize:     tick,
			MinQuantity:  minQty,
			TokenAddress: tokens,
		})
	}
	return pricing.NewTable(out), nil
}
