package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradeEngine/internal/chain"
	"tradeEngine/internal/config"
	"tradeEngine/internal/dex"
	"tradeEngine/internal/metrics"
	"tradeEngine/internal/model"
	"tradeEngine/internal/orders"
	"tradeEngine/internal/quote"
	"tradeEngine/internal/registry"
	"tradeEngine/internal/signer"
	"tradeEngine/internal/storage"
	"tradeEngine/internal/storage/postgres"
	"tradeEngine/internal/swap"
)

// app is the object graph shared by every command.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	registry *registry.Registry
	client   *chain.Client
	engine   *quote.Engine
	executor *swap.Executor
	pg       *postgres.Store
	wallet   string
	closers  []func()
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		wallet:  cfg.Wallet,
	}
	a.closers = append(a.closers, func() { logger.Sync() })

	reg, err := buildRegistry(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry = reg

	var reader dex.PoolStateReader
	if cfg.RPCURL != "" {
		client, err := chain.NewClient(ctx, cfg.RPCURL, cfg.RPCTimeout)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		a.client = client
		a.closers = append(a.closers, client.Close)
		if id, err := client.GetChainID(ctx); err != nil {
			logger.Warn("chain id check failed", zap.Error(err))
		} else if id.Uint64() != cfg.ChainID {
			logger.Warn("rpc chain id differs from configured chain id",
				zap.Uint64("rpc", id.Uint64()), zap.Uint64("configured", cfg.ChainID))
		}
		reader = dex.NewStateViewReader(client, reg.Contracts().StateView)
	} else {
		logger.Warn("no rpc configured, quotes will be simulated")
	}

	a.engine = quote.NewEngine(reg, reader, quote.Config{
		TTL:         cfg.QuoteTTL,
		ReadTimeout: cfg.RPCTimeout,
	}, a.metrics, logger.Named("quote"))

	if cfg.OrderStore == config.StorePostgres {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			a.Close()
			return nil, err
		}
		a.pg = pg
		a.closers = append(a.closers, pg.Close)
	}

	txSigner, err := a.buildSigner()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.executor = swap.NewExecutor(reg, a.engine, dex.NewEncoder(dex.DefaultActionCodes), txSigner, swap.Config{
		QuoteTTL:        cfg.QuoteTTL,
		SignerTimeout:   cfg.SignerTimeout,
		DeadlineWindow:  cfg.Deadline,
		SlippagePercent: cfg.Slippage,
	}, swap.Options{
		Journal: a.journal(),
		Metrics: a.metrics,
		Logger:  logger.Named("swap"),
	})
	return a, nil
}

func buildRegistry(cfg config.Config) (*registry.Registry, error) {
	var stateView, router common.Address
	if cfg.StateView != "" {
		if !common.IsHexAddress(cfg.StateView) {
			return nil, fmt.Errorf("invalid state-view address %q", cfg.StateView)
		}
		stateView = common.HexToAddress(cfg.StateView)
	}
	if cfg.Router != "" {
		if !common.IsHexAddress(cfg.Router) {
			return nil, fmt.Errorf("invalid router address %q", cfg.Router)
		}
		router = common.HexToAddress(cfg.Router)
	}
	return registry.WorldChain(stateView, router), nil
}

func (a *app) buildSigner() (swap.Signer, error) {
	if a.cfg.DryRun {
		if a.cfg.PrivateKey != "" && a.wallet == "" {
			if addr, err := signer.AddressFromKey(a.cfg.PrivateKey); err == nil {
				a.wallet = addr.Hex()
			}
		}
		return signer.NewDryRunSigner(a.logger.Named("signer")), nil
	}
	if a.client == nil {
		return nil, fmt.Errorf("broadcasting requires --rpc")
	}
	keySigner, err := signer.NewKeySigner(a.client, a.cfg.PrivateKey, a.cfg.ChainID, a.logger.Named("signer"))
	if err != nil {
		return nil, err
	}
	if a.wallet == "" {
		a.wallet = keySigner.Address().Hex()
	}
	return keySigner, nil
}

func (a *app) journal() storage.SwapJournal {
	if a.pg != nil {
		return a.pg
	}
	if a.cfg.Journal == "" {
		return nil
	}
	return storage.NewJsonlJournal(a.cfg.Journal)
}

func (a *app) orderStore(ctx context.Context) (orders.Store, error) {
	switch a.cfg.OrderStore {
	case config.StoreMemory:
		return orders.NewMemoryStore(), nil
	case config.StorePostgres:
		return &orders.DBStore{Store: a.pg}, nil
	case config.StoreRedis:
		store, err := orders.NewRedisStore(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB, a.cfg.RedisKey)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { store.Close() })
		return store, nil
	default:
		return &orders.FileStore{Path: a.cfg.OrdersFile}, nil
	}
}

// newMonitor builds the order monitor and loads its book.
func (a *app) newMonitor(ctx context.Context) (*orders.Monitor, *orders.HTTPMirror, error) {
	store, err := a.orderStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	deps := orders.Deps{
		Prices:   a.engine,
		Executor: a.executor,
		Store:    store,
		Notifier: orders.LogNotifier{Logger: a.logger.Named("orders")},
		Metrics:  a.metrics,
		Logger:   a.logger.Named("orders"),
	}
	var mirror *orders.HTTPMirror
	if a.cfg.BackendURL != "" {
		mirror = orders.NewHTTPMirror(a.cfg.BackendURL, a.cfg.RPCTimeout, a.logger.Named("mirror"))
		deps.Mirror = mirror
	}
	m := orders.NewMonitor(orders.Config{
		Interval:        a.cfg.PollInterval,
		PriceTimeout:    a.cfg.RPCTimeout,
		ExecTimeout:     a.cfg.SignerTimeout + a.cfg.RPCTimeout,
		SlippagePercent: a.cfg.Slippage,
		Retention:       a.cfg.OrderRetention,
		DeadlineWindow:  a.cfg.Deadline,
	}, deps)
	if err := m.Load(ctx); err != nil {
		return nil, nil, err
	}
	return m, mirror, nil
}

// resolveToken accepts a catalog symbol or address. Unknown addresses are
// read from chain when an RPC is configured.
func (a *app) resolveToken(ctx context.Context, arg string) (model.Token, error) {
	token, err := a.registry.Resolve(arg)
	if err == nil {
		return token, nil
	}
	if a.client == nil || !common.IsHexAddress(arg) {
		return model.Token{}, err
	}
	return dex.FetchToken(ctx, a.client, a.cfg.ChainID, common.HexToAddress(arg), a.logger)
}

func (a *app) requireWallet() (string, error) {
	if strings.TrimSpace(a.wallet) == "" {
		return "", swap.ErrNotConnected
	}
	return a.wallet, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
