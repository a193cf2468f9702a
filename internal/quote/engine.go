package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradeEngine/internal/dex"
	"tradeEngine/internal/metrics"
	"tradeEngine/internal/model"
	"tradeEngine/internal/registry"
)

// ErrStateUnavailable is returned when no chain price source can be reached.
var ErrStateUnavailable = errors.New("pool state unavailable")

var errPoolNotInitialized = errors.New("pool not initialized")

const (
	DefaultTTL             = 30 * time.Second
	DefaultCacheSize       = 1024
	DefaultReadTimeout     = 10 * time.Second
	DefaultSlippagePercent = 0.5
	DefaultGasEstimate     = 150000
	DefaultLPFee           = 3000

	feeDenominator = 1_000_000
)

var (
	// DefaultSqrtPriceX96 is 2^96, a price of exactly 1.
	DefaultSqrtPriceX96 = new(big.Int).Lsh(big.NewInt(1), 96)
	// DefaultLiquidity is 1e18.
	DefaultLiquidity = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	q192    = new(big.Int).Lsh(big.NewInt(1), 192)
	feeBase = big.NewInt(feeDenominator)
)

// Request asks for an exact-input quote. Fee 0 selects the configured pool
// for the pair, or the default tier.
type Request struct {
	TokenIn         model.Token
	TokenOut        model.Token
	AmountIn        string
	Fee             uint32
	SlippagePercent float64
}

// Config tunes the engine. Zero values take the defaults above.
type Config struct {
	CacheSize   int
	TTL         time.Duration
	ReadTimeout time.Duration
	GasEstimate uint64
}

type cacheKey struct {
	tokenIn  common.Address
	tokenOut common.Address
	amountIn string
	fee      uint32
}

// Engine prices swaps from live StateView reads and degrades to defaults or
// simulation when reads fail.
type Engine struct {
	registry *registry.Registry
	reader   dex.PoolStateReader
	cache    *expirable.LRU[cacheKey, *model.Quote]
	cfg      Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewEngine builds an engine. A nil reader means every quote is simulated.
func NewEngine(reg *registry.Registry, reader dex.PoolStateReader, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Engine {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.GasEstimate == 0 {
		cfg.GasEstimate = DefaultGasEstimate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry: reg,
		reader:   reader,
		cache:    expirable.NewLRU[cacheKey, *model.Quote](cfg.CacheSize, nil, cfg.TTL),
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Quote returns a best-effort quote. It only errors on invalid requests
// (identical tokens, a fee tier at or above 100%); an unreachable chain
// yields a quote with Simulated set.
func (e *Engine) Quote(ctx context.Context, req Request) (*model.Quote, error) {
	if req.TokenIn.Equal(req.TokenOut) {
		return nil, fmt.Errorf("token in and token out are both %s", req.TokenIn.Symbol)
	}
	slippage := req.SlippagePercent
	if slippage <= 0 {
		slippage = DefaultSlippagePercent
	}

	key, err := e.registry.PoolKey(req.TokenIn, req.TokenOut, req.Fee)
	if err != nil {
		return nil, err
	}
	ck := cacheKey{
		tokenIn:  req.TokenIn.Addr(),
		tokenOut: req.TokenOut.Addr(),
		amountIn: strings.TrimSpace(req.AmountIn),
		fee:      key.Fee,
	}
	if cached, ok := e.cache.Get(ck); ok {
		q := cached.Clone()
		applySlippage(q, slippage)
		return q, nil
	}

	amountIn := dex.ParseAmountLenient(req.AmountIn, req.TokenIn.Decimals, e.logger)

	state, err := e.PoolState(ctx, key)
	if err != nil {
		e.logger.Warn("quote falling back to simulation",
			zap.String("pair", req.TokenIn.Symbol+"/"+req.TokenOut.Symbol),
			zap.Error(err),
		)
		q := e.simulate(req, key.Fee, amountIn)
		applySlippage(q, slippage)
		e.metrics.RecordQuote(q.Source)
		return q, nil
	}

	q := e.compute(req, key, state, amountIn)
	e.metrics.RecordQuote(q.Source)
	e.cache.Add(ck, q.Clone())
	applySlippage(q, slippage)
	return q, nil
}

// PoolState reads slot0 and liquidity for key concurrently. A single failed
// read is replaced by its default; ErrStateUnavailable is returned when no
// reader is configured or both reads fail.
func (e *Engine) PoolState(ctx context.Context, key model.PoolKey) (model.PoolState, error) {
	if e.reader == nil {
		return model.PoolState{}, fmt.Errorf("%w: no state reader configured", ErrStateUnavailable)
	}
	id := dex.PoolID(key)

	var (
		slot0              dex.Slot0
		liquidity          *big.Int
		slotErr, liquidErr error
	)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		readCtx, cancel := context.WithTimeout(ctx, e.cfg.ReadTimeout)
		defer cancel()
		started := time.Now()
		slot0, slotErr = e.reader.Slot0(readCtx, id)
		if slotErr == nil && (slot0.SqrtPriceX96 == nil || slot0.SqrtPriceX96.Sign() == 0) {
			slotErr = errPoolNotInitialized
		}
		e.metrics.ObserveStateRead("getSlot0", started, slotErr)
	}()
	go func() {
		defer wg.Done()
		readCtx, cancel := context.WithTimeout(ctx, e.cfg.ReadTimeout)
		defer cancel()
		started := time.Now()
		liquidity, liquidErr = e.reader.Liquidity(readCtx, id)
		e.metrics.ObserveStateRead("getLiquidity", started, liquidErr)
	}()
	wg.Wait()

	if slotErr != nil && liquidErr != nil {
		return model.PoolState{}, fmt.Errorf("%w: slot0: %v; liquidity: %v", ErrStateUnavailable, slotErr, liquidErr)
	}

	state := model.PoolState{
		SlotSource:      model.StateSourceChain,
		LiquiditySource: model.StateSourceChain,
	}
	if slotErr != nil {
		e.logger.Warn("slot0 read failed, using default price",
			zap.String("pool_id", id.Hex()), zap.Error(slotErr))
		state.SqrtPriceX96 = new(big.Int).Set(DefaultSqrtPriceX96)
		state.LPFee = DefaultLPFee
		state.SlotSource = model.StateSourceDefault
	} else {
		state.SqrtPriceX96 = slot0.SqrtPriceX96
		state.Tick = slot0.Tick
		state.ProtocolFee = slot0.ProtocolFee
		state.LPFee = slot0.LPFee
	}
	if liquidErr != nil {
		e.logger.Warn("liquidity read failed, using default",
			zap.String("pool_id", id.Hex()), zap.Error(liquidErr))
		state.Liquidity = new(big.Int).Set(DefaultLiquidity)
		state.LiquiditySource = model.StateSourceDefault
	} else {
		state.Liquidity = liquidity
	}
	return state, nil
}

// MarketPrice is the output of a one-unit quote in human units of tokenOut.
// Only quotes built entirely from chain reads count: a simulated quote or one
// priced from the default slot0 would hand a trigger a nominal 1:1 price.
func (e *Engine) MarketPrice(ctx context.Context, tokenIn, tokenOut model.Token) (float64, error) {
	q, err := e.Quote(ctx, Request{TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: "1"})
	if err != nil {
		return 0, fmt.Errorf("market price for %s/%s: %w", tokenIn.Symbol, tokenOut.Symbol, err)
	}
	if q.Simulated || q.Source != model.QuoteSourceChain {
		return 0, fmt.Errorf("market price for %s/%s: %w: quote source is %s", tokenIn.Symbol, tokenOut.Symbol, ErrStateUnavailable, q.Source)
	}
	if q.AmountOut == nil || q.AmountOut.Sign() == 0 {
		return 0, fmt.Errorf("market price for %s/%s: quote returned zero output", tokenIn.Symbol, tokenOut.Symbol)
	}
	return dex.AmountToFloat(q.AmountOut, tokenOut.Decimals), nil
}

// InvalidatePair drops every cached quote between a and b in either direction.
func (e *Engine) InvalidatePair(a, b model.Token) {
	addrA, addrB := a.Addr(), b.Addr()
	for _, k := range e.cache.Keys() {
		if (k.tokenIn == addrA && k.tokenOut == addrB) || (k.tokenIn == addrB && k.tokenOut == addrA) {
			e.cache.Remove(k)
		}
	}
}

// Purge empties the cache.
func (e *Engine) Purge() {
	e.cache.Purge()
}

func (e *Engine) compute(req Request, key model.PoolKey, state model.PoolState, amountIn *big.Int) *model.Quote {
	zeroForOne := dex.ZeroForOne(req.TokenIn.Addr(), key)
	sqrt2 := new(big.Int).Mul(state.SqrtPriceX96, state.SqrtPriceX96)
	feeMul := big.NewInt(int64(feeDenominator) - int64(key.Fee))

	var amountOut *big.Int
	var expected *big.Rat
	if zeroForOne {
		num := new(big.Int).Mul(amountIn, sqrt2)
		expected = new(big.Rat).SetFrac(num, q192)
		num.Mul(num, feeMul)
		amountOut = num.Quo(num, new(big.Int).Mul(q192, feeBase))
	} else {
		num := new(big.Int).Mul(amountIn, q192)
		expected = new(big.Rat).SetFrac(num, sqrt2)
		num.Mul(num, feeMul)
		amountOut = num.Quo(num, new(big.Int).Mul(sqrt2, feeBase))
	}

	source := model.QuoteSourceChain
	if state.SlotSource != model.StateSourceChain || state.LiquiditySource != model.StateSourceChain {
		source = model.QuoteSourceDefaults
	}

	return &model.Quote{
		AmountIn:           new(big.Int).Set(amountIn),
		AmountOut:          amountOut,
		AmountOutFormatted: dex.FormatAmount(amountOut, req.TokenOut.Decimals),
		PriceImpactPercent: priceImpact(expected, amountOut),
		FeeAmount:          feeAmount(amountIn, key.Fee),
		Fee:                key.Fee,
		Route:              []string{req.TokenIn.Symbol, req.TokenOut.Symbol},
		SqrtPriceX96After:  new(big.Int).Set(state.SqrtPriceX96),
		GasEstimate:        e.cfg.GasEstimate,
		Source:             source,
	}
}

// simulate prices at 1:1 in human units with the fee applied.
func (e *Engine) simulate(req Request, fee uint32, amountIn *big.Int) *model.Quote {
	feeMul := big.NewInt(int64(feeDenominator) - int64(fee))
	num := new(big.Int).Mul(amountIn, feeMul)
	num.Mul(num, pow10(req.TokenOut.Decimals))
	den := new(big.Int).Mul(feeBase, pow10(req.TokenIn.Decimals))
	amountOut := num.Quo(num, den)

	return &model.Quote{
		AmountIn:           new(big.Int).Set(amountIn),
		AmountOut:          amountOut,
		AmountOutFormatted: dex.FormatAmount(amountOut, req.TokenOut.Decimals),
		FeeAmount:          feeAmount(amountIn, fee),
		Fee:                fee,
		Route:              []string{req.TokenIn.Symbol, req.TokenOut.Symbol},
		SqrtPriceX96After:  new(big.Int),
		GasEstimate:        e.cfg.GasEstimate,
		Simulated:          true,
		Source:             model.QuoteSourceSimulated,
	}
}

func priceImpact(expected *big.Rat, amountOut *big.Int) float64 {
	if expected.Sign() == 0 {
		return 0
	}
	diff := new(big.Rat).Sub(expected, new(big.Rat).SetInt(amountOut))
	if diff.Sign() <= 0 {
		return 0
	}
	pct, _ := diff.Quo(diff, expected).Mul(diff, big.NewRat(100, 1)).Float64()
	return pct
}

func feeAmount(amountIn *big.Int, fee uint32) *big.Int {
	out := new(big.Int).Mul(amountIn, big.NewInt(int64(fee)))
	return out.Quo(out, feeBase)
}

// applySlippage sets MinimumReceived = AmountOut * (1 - slippage/100), truncated.
func applySlippage(q *model.Quote, slippagePercent float64) {
	q.MinimumReceived = MinimumReceived(q.AmountOut, slippagePercent)
}

// MinimumReceived applies a slippage tolerance in percent to amount.
func MinimumReceived(amount *big.Int, slippagePercent float64) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	if slippagePercent < 0 {
		slippagePercent = 0
	}
	if slippagePercent > 100 {
		slippagePercent = 100
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(slippagePercent).Div(decimal.NewFromInt(100)))
	return decimal.NewFromBigInt(amount, 0).Mul(factor).Truncate(0).BigInt()
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
