package portfolio

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"tradeEngine/internal/dex"
	"tradeEngine/internal/model"
	"tradeEngine/internal/pricefeed"
)

const owner = "0x00000000000000000000000000000000000000a1"

var (
	wld  = model.Token{Address: "0x2cFc85d8E48F8EAB294be644d9E25C3030863003", Decimals: 18, Symbol: "WLD"}
	usdc = model.Token{Address: "0x79A02482A880bCE3F13e09Da970dC34db4CD24d1", Decimals: 6, Symbol: "USDC"}
	wbtc = model.Token{Address: "0x03C7054BCB39f7b2e5B2c7AcB37583e32D70Cfa3", Decimals: 8, Symbol: "WBTC"}
)

type balanceCaller struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	calls    int
}

func (b *balanceCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	bal, ok := b.balances[*msg.To]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	parsed, err := dex.ERC20ABI()
	if err != nil {
		return nil, err
	}
	return parsed.Methods["balanceOf"].Outputs.Pack(bal)
}

type staticPrices map[string]float64

func (s staticPrices) Prices(_ context.Context, symbols []string) (map[string]pricefeed.Price, error) {
	out := make(map[string]pricefeed.Price)
	for _, sym := range symbols {
		if usd, ok := s[sym]; ok {
			out[sym] = pricefeed.Price{USD: usd}
		}
	}
	return out, nil
}

func TestPortfolioValuesBalances(t *testing.T) {
	oneAndHalf, _ := new(big.Int).SetString("1500000000000000000", 10)
	caller := &balanceCaller{balances: map[common.Address]*big.Int{
		wld.Addr():  oneAndHalf,
		usdc.Addr(): big.NewInt(2_500_000),
	}}
	svc := NewService(caller, []model.Token{wld, usdc, wbtc}, staticPrices{"WLD": 2, "USDC": 1}, 0, nil)

	summary, err := svc.Portfolio(context.Background(), owner)
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if len(summary.Balances) != 2 {
		t.Fatalf("balances = %+v", summary.Balances)
	}
	if summary.Balances[0].Token.Symbol != "WLD" || summary.Balances[0].Formatted != "1.5" {
		t.Fatalf("wld balance = %+v", summary.Balances[0])
	}
	if summary.Balances[1].Formatted != "2.5" {
		t.Fatalf("usdc balance = %+v", summary.Balances[1])
	}
	if summary.TotalValueUSD < 5.4999 || summary.TotalValueUSD > 5.5001 {
		t.Fatalf("total = %v, want 5.5", summary.TotalValueUSD)
	}

	calls := caller.calls
	if _, err := svc.Portfolio(context.Background(), owner); err != nil {
		t.Fatalf("cached portfolio: %v", err)
	}
	if caller.calls != calls {
		t.Fatalf("second call should hit the cache")
	}

	svc.Invalidate(owner)
	if _, err := svc.Portfolio(context.Background(), owner); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if caller.calls == calls {
		t.Fatalf("invalidate should force a refetch")
	}
}

func TestPortfolioRejectsBadOwner(t *testing.T) {
	svc := NewService(&balanceCaller{}, []model.Token{wld}, nil, 0, nil)
	if _, err := svc.Portfolio(context.Background(), "not-an-address"); err == nil {
		t.Fatalf("expected error")
	}
}
