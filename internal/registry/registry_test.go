package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"tradeEngine/internal/dex"
	"tradeEngine/internal/model"
)

func mustToken(t *testing.T, r *Registry, symbol string) model.Token {
	t.Helper()
	token, ok := r.TokenBySymbol(symbol)
	if !ok {
		t.Fatalf("token %s not found", symbol)
	}
	return token
}

func TestWorldChainCatalog(t *testing.T) {
	r := WorldChain(common.Address{}, common.Address{})
	if r.ChainID() != WorldChainID {
		t.Fatalf("unexpected chain id %d", r.ChainID())
	}
	if len(r.Tokens()) != 9 {
		t.Fatalf("expected 9 tokens, got %d", len(r.Tokens()))
	}
	if len(r.Pools()) != 8 {
		t.Fatalf("expected 8 pools, got %d", len(r.Pools()))
	}
	for _, pool := range r.Pools() {
		c0 := strings.ToLower(pool.Key.Currency0.Hex())
		c1 := strings.ToLower(pool.Key.Currency1.Hex())
		if c0 >= c1 {
			t.Fatalf("pool %s/%s not sorted", pool.Symbol0, pool.Symbol1)
		}
	}
}

func TestWorldChainOverrides(t *testing.T) {
	stateView := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	r := WorldChain(stateView, common.Address{})
	if r.Contracts().StateView != stateView {
		t.Fatalf("state view override ignored")
	}
	if r.Contracts().UniversalRouter != WorldChainContracts.UniversalRouter {
		t.Fatalf("router should keep the default")
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	r := WorldChain(common.Address{}, common.Address{})
	wld := mustToken(t, r, "wld")
	byAddr, ok := r.TokenByAddress(strings.ToLower(wld.Address))
	if !ok || !byAddr.Equal(wld) {
		t.Fatalf("lookup by lowercase address failed")
	}
	resolved, err := r.Resolve(strings.ToLower(wld.Address))
	if err != nil || !resolved.Equal(wld) {
		t.Fatalf("resolve by address failed: %v", err)
	}
	if _, err := r.Resolve("NOPE"); err == nil {
		t.Fatalf("expected error for unknown token")
	}
}

func TestFindPool(t *testing.T) {
	r := WorldChain(common.Address{}, common.Address{})
	wld := mustToken(t, r, "WLD")
	usdc := mustToken(t, r, "USDC")
	eth := mustToken(t, r, "ETH")

	pool, err := r.FindPool(usdc, wld, 0)
	if err != nil {
		t.Fatalf("find pool: %v", err)
	}
	if pool.Key.Fee != 1400 || pool.Key.TickSpacing != 20 {
		t.Fatalf("unexpected pool %+v", pool.Key)
	}

	if _, err := r.FindPool(wld, usdc, 3000); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound for wrong fee, got %v", err)
	}
	uxrp := mustToken(t, r, "uXRP")
	if _, err := r.FindPool(eth, uxrp, 0); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound for unknown pair, got %v", err)
	}
}

func mustPoolKey(t *testing.T, r *Registry, a, b model.Token, fee uint32) model.PoolKey {
	t.Helper()
	key, err := r.PoolKey(a, b, fee)
	if err != nil {
		t.Fatalf("pool key %s/%s fee %d: %v", a.Symbol, b.Symbol, fee, err)
	}
	return key
}

func TestPoolKeyDefaults(t *testing.T) {
	r := WorldChain(common.Address{}, common.Address{})
	wld := mustToken(t, r, "WLD")
	usdc := mustToken(t, r, "USDC")
	eth := mustToken(t, r, "ETH")
	uxrp := mustToken(t, r, "uXRP")

	key := mustPoolKey(t, r, wld, usdc, 0)
	if key.Fee != 1400 || key.TickSpacing != 20 {
		t.Fatalf("configured pool should win, got %+v", key)
	}

	key = mustPoolKey(t, r, eth, uxrp, 0)
	if key.Fee != DefaultFee || key.TickSpacing != 60 {
		t.Fatalf("expected default tier, got %+v", key)
	}

	key = mustPoolKey(t, r, eth, uxrp, 10000)
	if key.Fee != 10000 || key.TickSpacing != 200 {
		t.Fatalf("expected 10000/200, got %+v", key)
	}

	if mustPoolKey(t, r, eth, usdc, 500) != mustPoolKey(t, r, usdc, eth, 500) {
		t.Fatalf("pool key depends on argument order")
	}
}

func TestPoolKeyRejectsImpossibleFee(t *testing.T) {
	r := WorldChain(common.Address{}, common.Address{})
	eth := mustToken(t, r, "ETH")
	usdc := mustToken(t, r, "USDC")

	for _, fee := range []uint32{1_000_000, 2_000_000, 0xFFFFFF + 1} {
		if _, err := r.PoolKey(eth, usdc, fee); !errors.Is(err, dex.ErrInvalidFee) {
			t.Fatalf("fee %d: err = %v, want ErrInvalidFee", fee, err)
		}
	}
	if key := mustPoolKey(t, r, eth, usdc, dex.MaxFee); key.Fee != dex.MaxFee {
		t.Fatalf("max fee key = %+v", key)
	}
}

func TestNewRejectsUnknownPoolToken(t *testing.T) {
	tokens := []model.Token{{Address: "0x0000000000000000000000000000000000000001", Decimals: 18, Symbol: "A"}}
	_, err := New(1, Contracts{}, tokens, []PoolSpec{{Symbol0: "A", Symbol1: "B", Fee: 500, TickSpacing: 10}})
	if err == nil {
		t.Fatalf("expected error for pool with unknown token")
	}
	_, err = New(1, Contracts{}, []model.Token{{Address: "nope", Symbol: "X"}}, nil)
	if err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
