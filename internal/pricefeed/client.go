package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	DefaultTTL     = 2 * time.Minute
	DefaultTimeout = 10 * time.Second
	cacheSize      = 256
)

// Price is the USD quote for a symbol.
type Price struct {
	USD         float64   `json:"usd"`
	LastUpdated time.Time `json:"last_updated"`
}

// Client fetches USD prices from the price service.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *expirable.LRU[string, Price]
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout, ttl time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		cache:   expirable.NewLRU[string, Price](cacheSize, nil, ttl),
		logger:  logger,
	}
}

// Prices returns prices for the requested symbols. Cached symbols are not
// refetched; symbols the service does not know are absent from the result.
func (c *Client) Prices(ctx context.Context, symbols []string) (map[string]Price, error) {
	out := make(map[string]Price, len(symbols))
	var missing []string
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		if p, ok := c.cache.Get(s); ok {
			out[s] = p
			continue
		}
		missing = append(missing, s)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.fetch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for symbol, p := range fetched {
		c.cache.Add(symbol, p)
		out[symbol] = p
	}
	return out, nil
}

// Price returns a single symbol's price.
func (c *Client) Price(ctx context.Context, symbol string) (Price, bool, error) {
	prices, err := c.Prices(ctx, []string{symbol})
	if err != nil {
		return Price{}, false, err
	}
	p, ok := prices[symbol]
	return p, ok, nil
}

func (c *Client) Purge() {
	c.cache.Purge()
}

func (c *Client) fetch(ctx context.Context, symbols []string) (map[string]Price, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse price feed url: %w", err)
	}
	sort.Strings(symbols)
	q := u.Query()
	q.Set("symbols", strings.Join(symbols, ","))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create price request: %w", err)
	}
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch prices: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var prices map[string]Price
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}
	c.logger.Debug("prices fetched",
		zap.Strings("symbols", symbols),
		zap.Int("returned", len(prices)),
		zap.Duration("took", time.Since(started)),
	)
	return prices, nil
}
