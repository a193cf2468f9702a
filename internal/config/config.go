package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Order store backends.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL        string
	ChainID       uint64
	StateView     string
	Router        string
	RPCTimeout    time.Duration
	SignerTimeout time.Duration
	QuoteTTL      time.Duration
	Slippage      float64
	Deadline      time.Duration

	PollInterval   time.Duration
	OrderStore     string
	OrdersFile     string
	OrderRetention time.Duration
	PGDSN          string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKey       string
	BackendURL     string
	PriceFeedURL   string

	PrivateKey  string
	Wallet      string
	DryRun      bool
	MetricsAddr string
	Journal     string
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", uint64(480))
	v.SetDefault("rpc-timeout", 10*time.Second)
	v.SetDefault("signer-timeout", 60*time.Second)
	v.SetDefault("quote-ttl", 30*time.Second)
	v.SetDefault("slippage", 0.5)
	v.SetDefault("deadline", 30*time.Minute)
	v.SetDefault("poll-interval", 30*time.Second)
	v.SetDefault("order-store", StoreFile)
	v.SetDefault("orders-file", "./data/orders.json")
	v.SetDefault("order-retention", 30*24*time.Hour)
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("redis-key", "trader:limit_orders")
	v.SetDefault("dry-run", true)
	v.SetDefault("metrics-addr", ":9102")
	v.SetDefault("journal", "./data/swaps.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:         v.GetString("rpc"),
		ChainID:        v.GetUint64("chain-id"),
		StateView:      v.GetString("state-view"),
		Router:         v.GetString("router"),
		RPCTimeout:     v.GetDuration("rpc-timeout"),
		SignerTimeout:  v.GetDuration("signer-timeout"),
		QuoteTTL:       v.GetDuration("quote-ttl"),
		Slippage:       v.GetFloat64("slippage"),
		Deadline:       v.GetDuration("deadline"),
		PollInterval:   v.GetDuration("poll-interval"),
		OrderStore:     strings.ToLower(v.GetString("order-store")),
		OrdersFile:     v.GetString("orders-file"),
		OrderRetention: v.GetDuration("order-retention"),
		PGDSN:          v.GetString("pg-dsn"),
		RedisAddr:      v.GetString("redis-addr"),
		RedisPassword:  v.GetString("redis-password"),
		RedisDB:        v.GetInt("redis-db"),
		RedisKey:       v.GetString("redis-key"),
		BackendURL:     v.GetString("backend-url"),
		PriceFeedURL:   v.GetString("price-feed-url"),
		PrivateKey:     v.GetString("private-key"),
		Wallet:         v.GetString("wallet"),
		DryRun:         v.GetBool("dry-run"),
		MetricsAddr:    v.GetString("metrics-addr"),
		Journal:        v.GetString("journal"),
		LogLevel:       v.GetString("log-level"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have a closed set or range.
func (c Config) Validate() error {
	switch c.OrderStore {
	case StoreFile, StoreMemory, StorePostgres, StoreRedis:
	default:
		return fmt.Errorf("unknown order store %q", c.OrderStore)
	}
	if c.OrderStore == StorePostgres && c.PGDSN == "" {
		return fmt.Errorf("order store postgres requires --pg-dsn")
	}
	if c.Slippage < 0 || c.Slippage > 100 {
		return fmt.Errorf("slippage %v out of range [0, 100]", c.Slippage)
	}
	if !c.DryRun && c.PrivateKey == "" {
		return fmt.Errorf("broadcasting requires --private-key (or set --dry-run)")
	}
	return nil
}
