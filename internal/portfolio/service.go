package portfolio

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradeEngine/internal/dex"
	"tradeEngine/internal/model"
	"tradeEngine/internal/pricefeed"
)

const (
	DefaultTTL         = 30 * time.Second
	DefaultConcurrency = 4
)

// PriceFeed is the subset of the price client the service needs.
type PriceFeed interface {
	Prices(ctx context.Context, symbols []string) (map[string]pricefeed.Price, error)
}

type Balance struct {
	Token     model.Token `json:"token"`
	Raw       *big.Int    `json:"raw"`
	Formatted string      `json:"formatted"`
	PriceUSD  float64     `json:"price_usd"`
	ValueUSD  float64     `json:"value_usd"`
}

type Summary struct {
	Owner         string    `json:"owner"`
	TotalValueUSD float64   `json:"total_value_usd"`
	Balances      []Balance `json:"balances"`
	LastUpdated   time.Time `json:"last_updated"`
}

type Service struct {
	caller      dex.ContractCaller
	tokens      []model.Token
	prices      PriceFeed
	cache       *expirable.LRU[string, Summary]
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(caller dex.ContractCaller, tokens []model.Token, prices PriceFeed, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		caller:      caller,
		tokens:      append([]model.Token(nil), tokens...),
		prices:      prices,
		cache:       expirable.NewLRU[string, Summary](128, nil, ttl),
		concurrency: DefaultConcurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Portfolio reads every catalog token balance for owner and values it in USD.
// Tokens whose balance cannot be read are left out.
func (s *Service) Portfolio(ctx context.Context, owner string) (Summary, error) {
	if !common.IsHexAddress(owner) {
		return Summary{}, fmt.Errorf("invalid owner address %q", owner)
	}
	account := common.HexToAddress(owner)
	key := strings.ToLower(account.Hex())
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	raw := make([]*big.Int, len(s.tokens))
	var mu sync.Mutex
	var failed int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, token := range s.tokens {
		i, token := i, token
		g.Go(func() error {
			bal, err := dex.BalanceOf(gctx, s.caller, token.Addr(), account)
			if err != nil {
				s.logger.Warn("balance read failed", zap.String("token", token.Symbol), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			raw[i] = bal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if ctx.Err() != nil {
		return Summary{}, ctx.Err()
	}

	symbols := make([]string, 0, len(s.tokens))
	for i, token := range s.tokens {
		if raw[i] != nil {
			symbols = append(symbols, token.Symbol)
		}
	}
	var prices map[string]pricefeed.Price
	if s.prices != nil && len(symbols) > 0 {
		p, err := s.prices.Prices(ctx, symbols)
		if err != nil {
			s.logger.Warn("price feed unavailable, balances unvalued", zap.Error(err))
		} else {
			prices = p
		}
	}

	summary := Summary{Owner: account.Hex(), LastUpdated: s.now()}
	for i, token := range s.tokens {
		if raw[i] == nil {
			continue
		}
		b := Balance{
			Token:     token,
			Raw:       raw[i],
			Formatted: dex.FormatAmount(raw[i], token.Decimals),
		}
		if p, ok := prices[token.Symbol]; ok {
			b.PriceUSD = p.USD
			b.ValueUSD = dex.AmountToFloat(raw[i], token.Decimals) * p.USD
		}
		summary.TotalValueUSD += b.ValueUSD
		summary.Balances = append(summary.Balances, b)
	}

	if failed < len(s.tokens) {
		s.cache.Add(key, summary)
	}
	s.logger.Debug("portfolio loaded",
		zap.String("owner", summary.Owner),
		zap.Int("balances", len(summary.Balances)),
		zap.Int("failed", failed),
		zap.Float64("total_usd", summary.TotalValueUSD),
	)
	return summary, nil
}

// Invalidate drops the cached summary for owner.
func (s *Service) Invalidate(owner string) {
	s.cache.Remove(strings.ToLower(common.HexToAddress(owner).Hex()))
}
