package swap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradeEngine/internal/dex"
	"tradeEngine/internal/metrics"
	"tradeEngine/internal/model"
	"tradeEngine/internal/quote"
	"tradeEngine/internal/registry"
	"tradeEngine/internal/storage"
)

const (
	DefaultQuoteTTL       = 30 * time.Second
	DefaultSignerTimeout  = 60 * time.Second
	DefaultDeadlineWindow = 30 * time.Minute
	defaultCacheSize      = 512
)

// Params describes a swap request from the user.
type Params struct {
	TokenIn         model.Token
	TokenOut        model.Token
	AmountIn        string
	SlippagePercent float64
	// Deadline of zero means now + the configured window.
	Deadline time.Time
}

// Config tunes the executor. Zero values take the defaults above.
type Config struct {
	QuoteTTL        time.Duration
	SignerTimeout   time.Duration
	DeadlineWindow  time.Duration
	SlippagePercent float64
}

// Options carries optional collaborators.
type Options struct {
	Journal storage.SwapJournal
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

type quoteKey struct {
	tokenIn  common.Address
	tokenOut common.Address
	amountIn string
}

// Executor quotes, encodes and submits swaps through a Signer.
type Executor struct {
	registry *registry.Registry
	engine   *quote.Engine
	encoder  *dex.Encoder
	signer   Signer
	cache    *expirable.LRU[quoteKey, *model.Quote]
	cfg      Config
	journal  storage.SwapJournal
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewExecutor(reg *registry.Registry, engine *quote.Engine, encoder *dex.Encoder, signer Signer, cfg Config, opts Options) *Executor {
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = DefaultQuoteTTL
	}
	if cfg.SignerTimeout <= 0 {
		cfg.SignerTimeout = DefaultSignerTimeout
	}
	if cfg.DeadlineWindow <= 0 {
		cfg.DeadlineWindow = DefaultDeadlineWindow
	}
	if cfg.SlippagePercent <= 0 {
		cfg.SlippagePercent = quote.DefaultSlippagePercent
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if encoder == nil {
		encoder = dex.NewEncoder(dex.DefaultActionCodes)
	}
	return &Executor{
		registry: reg,
		engine:   engine,
		encoder:  encoder,
		signer:   signer,
		cache:    expirable.NewLRU[quoteKey, *model.Quote](defaultCacheSize, nil, cfg.QuoteTTL),
		cfg:      cfg,
		journal:  opts.Journal,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// GetQuote quotes a swap through a configured pool only.
func (e *Executor) GetQuote(ctx context.Context, p Params) (*model.Quote, error) {
	if p.TokenIn.Equal(p.TokenOut) {
		return nil, ErrSameToken
	}
	pool, err := e.registry.FindPool(p.TokenIn, p.TokenOut, 0)
	if err != nil {
		return nil, err
	}
	slippage := e.slippage(p)

	key := quoteKey{
		tokenIn:  p.TokenIn.Addr(),
		tokenOut: p.TokenOut.Addr(),
		amountIn: strings.TrimSpace(p.AmountIn),
	}
	if cached, ok := e.cache.Get(key); ok {
		q := cached.Clone()
		q.MinimumReceived = quote.MinimumReceived(q.AmountOut, slippage)
		return q, nil
	}

	q, err := e.engine.Quote(ctx, quote.Request{
		TokenIn:         p.TokenIn,
		TokenOut:        p.TokenOut,
		AmountIn:        p.AmountIn,
		Fee:             pool.Key.Fee,
		SlippagePercent: slippage,
	})
	if err != nil {
		return nil, err
	}
	if !q.Simulated {
		e.cache.Add(key, q.Clone())
	}
	return q, nil
}

// QuoteAtPrice builds the quote a limit order submits: the output expected at
// price (tokenOut per tokenIn) with slippage applied to form the floor.
func (e *Executor) QuoteAtPrice(tokenIn, tokenOut model.Token, amountIn string, price, slippagePercent float64) (*model.Quote, error) {
	raw, err := dex.ParseAmount(amountIn, tokenIn.Decimals)
	if err != nil {
		return nil, err
	}
	if raw.Sign() == 0 {
		return nil, ErrInvalidAmount
	}
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive, got %v", price)
	}
	if slippagePercent <= 0 {
		slippagePercent = e.cfg.SlippagePercent
	}

	out := decimal.NewFromBigInt(raw, -int32(tokenIn.Decimals)).
		Mul(decimal.NewFromFloat(price)).
		Shift(int32(tokenOut.Decimals)).
		Truncate(0).
		BigInt()

	var fee uint32
	if pool, err := e.registry.FindPool(tokenIn, tokenOut, 0); err == nil {
		fee = pool.Key.Fee
	}

	return &model.Quote{
		AmountIn:           raw,
		AmountOut:          out,
		AmountOutFormatted: dex.FormatAmount(out, tokenOut.Decimals),
		MinimumReceived:    quote.MinimumReceived(out, slippagePercent),
		FeeAmount:          new(big.Int),
		Fee:                fee,
		Route:              []string{tokenIn.Symbol, tokenOut.Symbol},
		SqrtPriceX96After:  new(big.Int),
		GasEstimate:        quote.DefaultGasEstimate,
		Source:             model.QuoteSourceLimit,
	}, nil
}

// ExecuteSwap encodes the swap with q.MinimumReceived as the floor and submits
// it to the router. It returns the signer's transaction id.
func (e *Executor) ExecuteSwap(ctx context.Context, p Params, q *model.Quote, signerAddress string) (string, error) {
	signerAddress = strings.TrimSpace(signerAddress)
	if signerAddress == "" {
		return "", ErrNotConnected
	}
	if !common.IsHexAddress(signerAddress) {
		return "", fmt.Errorf("invalid signer address %q", signerAddress)
	}
	if p.TokenIn.Equal(p.TokenOut) {
		return "", ErrSameToken
	}
	amountIn, err := dex.ParseAmount(p.AmountIn, p.TokenIn.Decimals)
	if err != nil {
		return "", err
	}
	if amountIn.Sign() == 0 {
		return "", ErrInvalidAmount
	}
	if q == nil || q.MinimumReceived == nil || q.MinimumReceived.Sign() <= 0 {
		return "", ErrInvalidQuote
	}
	pool, err := e.registry.FindPool(p.TokenIn, p.TokenOut, 0)
	if err != nil {
		return "", err
	}

	swapParams := dex.SwapParams{
		PoolKey:      pool.Key,
		ZeroForOne:   dex.ZeroForOne(p.TokenIn.Addr(), pool.Key),
		AmountIn:     amountIn,
		MinAmountOut: q.MinimumReceived,
	}
	envelope, err := e.encoder.Envelope(swapParams)
	if err != nil {
		return "", fmt.Errorf("encode swap: %w", err)
	}
	routerABI, err := dex.UniversalRouterABI()
	if err != nil {
		return "", fmt.Errorf("parse router abi: %w", err)
	}

	deadline := p.Deadline
	if deadline.IsZero() {
		deadline = e.now().Add(e.cfg.DeadlineWindow)
	}

	req := TxRequest{
		From:   common.HexToAddress(signerAddress),
		To:     e.registry.Contracts().UniversalRouter,
		ABI:    routerABI,
		Method: "execute",
		Args:   []interface{}{envelope.Commands, envelope.Inputs, big.NewInt(deadline.Unix())},
		Value:  new(big.Int),
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.cfg.SignerTimeout)
	defer cancel()
	result, err := e.signer.SendTransaction(sendCtx, req)
	if err != nil {
		e.metrics.RecordSwap("failed")
		return "", &SwapExecutionFailedError{Reason: err.Error()}
	}
	if result.Status != TxSuccess {
		e.metrics.RecordSwap("failed")
		reason := result.Error
		if reason == "" {
			reason = "signer reported status " + string(result.Status)
		}
		return "", &SwapExecutionFailedError{Reason: reason}
	}

	e.InvalidatePair(p.TokenIn, p.TokenOut)
	e.metrics.RecordSwap("success")

	poolID := dex.PoolID(pool.Key)
	e.logger.Info("swap submitted",
		zap.String("tx", result.TransactionID),
		zap.String("pool_id", poolID.Hex()),
		zap.String("pair", p.TokenIn.Symbol+"/"+p.TokenOut.Symbol),
		zap.String("amount_in", amountIn.String()),
		zap.String("min_out", q.MinimumReceived.String()),
	)

	if e.journal != nil {
		record := model.SwapRecord{
			TransactionID:   result.TransactionID,
			Owner:           req.From.Hex(),
			PoolID:          poolID.Hex(),
			TokenIn:         p.TokenIn.Symbol,
			TokenOut:        p.TokenOut.Symbol,
			AmountIn:        amountIn.String(),
			MinimumReceived: q.MinimumReceived.String(),
			Deadline:        deadline.Unix(),
			SubmittedAt:     e.now().UTC().Format(time.RFC3339),
		}
		if err := e.journal.AppendSwap(ctx, record); err != nil {
			e.logger.Warn("swap journal append failed", zap.String("tx", result.TransactionID), zap.Error(err))
		}
	}

	return result.TransactionID, nil
}

// InvalidatePair drops cached quotes for the pair in this executor and the engine.
func (e *Executor) InvalidatePair(a, b model.Token) {
	addrA, addrB := a.Addr(), b.Addr()
	for _, k := range e.cache.Keys() {
		if (k.tokenIn == addrA && k.tokenOut == addrB) || (k.tokenIn == addrB && k.tokenOut == addrA) {
			e.cache.Remove(k)
		}
	}
	if e.engine != nil {
		e.engine.InvalidatePair(a, b)
	}
}

func (e *Executor) slippage(p Params) float64 {
	if p.SlippagePercent > 0 {
		return p.SlippagePercent
	}
	return e.cfg.SlippagePercent
}
