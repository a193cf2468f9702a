package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"tradeEngine/internal/dex"
	"tradeEngine/internal/model"
)

// DefaultFee is used when neither the caller nor the pool table names a fee tier.
const DefaultFee uint32 = 3000

// ErrConfigNotFound is returned when no pool configuration exists for a pair.
var ErrConfigNotFound = errors.New("pool config not found")

// Contracts holds the protocol deployment addresses for a chain.
type Contracts struct {
	PoolManager     common.Address
	PositionManager common.Address
	Quoter          common.Address
	StateView       common.Address
	UniversalRouter common.Address
	Permit2         common.Address
}

// Registry is a static catalog of tokens and known pools.
type Registry struct {
	chainID   uint64
	contracts Contracts
	tokens    []model.Token
	bySymbol  map[string]model.Token
	byAddress map[common.Address]model.Token
	pools     []model.PoolConfig
}

// PoolSpec declares a pool by token symbols.
type PoolSpec struct {
	Symbol0     string
	Symbol1     string
	Fee         uint32
	TickSpacing int32
	Hooks       common.Address
}

// New builds a registry and validates that every pool references known tokens.
func New(chainID uint64, contracts Contracts, tokens []model.Token, pools []PoolSpec) (*Registry, error) {
	r := &Registry{
		chainID:   chainID,
		contracts: contracts,
		bySymbol:  make(map[string]model.Token, len(tokens)),
		byAddress: make(map[common.Address]model.Token, len(tokens)),
	}

	for _, token := range tokens {
		if !common.IsHexAddress(token.Address) {
			return nil, fmt.Errorf("invalid token address for %s: %s", token.Symbol, token.Address)
		}
		token.ChainID = chainID
		r.tokens = append(r.tokens, token)
		r.bySymbol[strings.ToUpper(token.Symbol)] = token
		r.byAddress[token.Addr()] = token
	}

	for _, spec := range pools {
		t0, ok := r.TokenBySymbol(spec.Symbol0)
		if !ok {
			return nil, fmt.Errorf("pool references unknown token %s", spec.Symbol0)
		}
		t1, ok := r.TokenBySymbol(spec.Symbol1)
		if !ok {
			return nil, fmt.Errorf("pool references unknown token %s", spec.Symbol1)
		}
		key := dex.NewPoolKey(t0.Addr(), t1.Addr(), spec.Fee, spec.TickSpacing, spec.Hooks)
		sym0, sym1 := t0.Symbol, t1.Symbol
		if key.Currency0 != t0.Addr() {
			sym0, sym1 = sym1, sym0
		}
		r.pools = append(r.pools, model.PoolConfig{Key: key, Symbol0: sym0, Symbol1: sym1})
	}

	return r, nil
}

// ChainID returns the chain the registry describes.
func (r *Registry) ChainID() uint64 { return r.chainID }

// Contracts returns the deployment addresses.
func (r *Registry) Contracts() Contracts { return r.contracts }

// Tokens returns the catalog in display order.
func (r *Registry) Tokens() []model.Token {
	return append([]model.Token(nil), r.tokens...)
}

// Pools returns the configured pools.
func (r *Registry) Pools() []model.PoolConfig {
	return append([]model.PoolConfig(nil), r.pools...)
}

// TokenBySymbol looks a token up by symbol, case-insensitively.
func (r *Registry) TokenBySymbol(symbol string) (model.Token, bool) {
	token, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return token, ok
}

// TokenByAddress looks a token up by address, case-insensitively.
func (r *Registry) TokenByAddress(address string) (model.Token, bool) {
	if !common.IsHexAddress(address) {
		return model.Token{}, false
	}
	token, ok := r.byAddress[common.HexToAddress(address)]
	return token, ok
}

// Resolve accepts either a symbol or an address.
func (r *Registry) Resolve(symbolOrAddress string) (model.Token, error) {
	if token, ok := r.TokenBySymbol(symbolOrAddress); ok {
		return token, nil
	}
	if token, ok := r.TokenByAddress(symbolOrAddress); ok {
		return token, nil
	}
	return model.Token{}, fmt.Errorf("unknown token: %s", symbolOrAddress)
}

// FindPool returns the configured pool for an unordered pair. A zero fee matches any tier.
func (r *Registry) FindPool(a, b model.Token, fee uint32) (model.PoolConfig, error) {
	addrA, addrB := a.Addr(), b.Addr()
	for _, pool := range r.pools {
		matches := (pool.Key.Currency0 == addrA && pool.Key.Currency1 == addrB) ||
			(pool.Key.Currency0 == addrB && pool.Key.Currency1 == addrA)
		if !matches {
			continue
		}
		if fee != 0 && pool.Key.Fee != fee {
			continue
		}
		return pool, nil
	}
	return model.PoolConfig{}, fmt.Errorf("%w: %s/%s fee %d", ErrConfigNotFound, a.Symbol, b.Symbol, fee)
}

// PoolKey builds the canonical key for a pair. With fee 0 the configured pool
// for the pair wins, otherwise DefaultFee. A configured pool with the requested
// fee supplies its own tick spacing.
func (r *Registry) PoolKey(a, b model.Token, fee uint32) (model.PoolKey, error) {
	if err := dex.ValidateFee(fee); err != nil {
		return model.PoolKey{}, err
	}
	if pool, err := r.FindPool(a, b, fee); err == nil {
		return pool.Key, nil
	}
	if fee == 0 {
		fee = DefaultFee
	}
	return dex.NewPoolKey(a.Addr(), b.Addr(), fee, dex.TickSpacingForFee(fee), common.Address{}), nil
}
