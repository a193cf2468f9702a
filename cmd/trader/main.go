package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "trader",
		Short:        "Uniswap v4 swap and limit order client for World Chain",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "", "World Chain RPC URL (empty quotes from simulation only)")
	flags.Uint64("chain-id", 480, "chain id used for signing")
	flags.String("state-view", "", "override StateView contract address")
	flags.String("router", "", "override UniversalRouter contract address")
	flags.Duration("rpc-timeout", 10*time.Second, "timeout per RPC call")
	flags.Duration("signer-timeout", 60*time.Second, "timeout for signing and broadcast")
	flags.Duration("quote-ttl", 30*time.Second, "quote cache lifetime")
	flags.Float64("slippage", 0.5, "slippage tolerance in percent")
	flags.Duration("deadline", 30*time.Minute, "swap deadline window")
	flags.String("private-key", "", "hex private key used to sign swaps")
	flags.String("wallet", "", "owner address (defaults to the signing key's address)")
	flags.Bool("dry-run", true, "encode and log transactions without broadcasting")
	flags.String("journal", "./data/swaps.jsonl", "swap journal JSONL path (empty disables)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	flags.Duration("poll-interval", 30*time.Second, "limit order poll interval")
	flags.String("order-store", "file", "order store: file, memory, postgres, redis")
	flags.String("orders-file", "./data/orders.json", "order file for the file store")
	flags.Duration("order-retention", 30*24*time.Hour, "age after which finished orders are cleaned up")
	flags.String("pg-dsn", "", "Postgres DSN for the postgres store")
	flags.String("redis-addr", "localhost:6379", "Redis address for the redis store")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.String("redis-key", "trader:limit_orders", "Redis key holding the order list")
	flags.String("backend-url", "", "limit order mirror endpoint (empty disables)")
	flags.String("price-feed-url", "", "USD price feed endpoint")
	flags.String("metrics-addr", ":9102", "metrics listen address for the monitor")

	root.AddCommand(
		newPoolsCmd(),
		newPoolIDCmd(),
		newQuoteCmd(),
		newSwapCmd(),
		newOrderCmd(),
		newMonitorCmd(),
		newPortfolioCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
