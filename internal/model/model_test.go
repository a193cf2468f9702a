package model

import (
	"encoding/json"
	"math/big"
	"reflect"
	"testing"
	"time"
)

func TestLimitOrderJSONRoundTrip(t *testing.T) {
	executedAt := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	original := LimitOrder{
		ID:            "order_1714600000000_1a2b3c4d",
		Owner:         "0x00000000000000000000000000000000000000a1",
		TokenIn:       Token{ChainID: 480, Address: "0x2cFc85d8E48F8EAB294be644d9E25C3030863003", Decimals: 18, Symbol: "WLD"},
		TokenOut:      Token{ChainID: 480, Address: "0x79A02482A880bCE3F13e09Da970dC34db4CD24d1", Decimals: 6, Symbol: "USDC"},
		AmountIn:      "10",
		TargetPrice:   1.375,
		ExpiresAt:     time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC),
		Status:        OrderExecuted,
		CreatedAt:     time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC),
		ExecutedAt:    &executedAt,
		TransactionID: "0xabc",
		Pair:          "WLD/USDC",
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded LimitOrder
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if OrderPending.Terminal() {
		t.Fatalf("pending must not be terminal")
	}
	for _, s := range []OrderStatus{OrderExecuted, OrderCancelled, OrderExpired, OrderFailed} {
		if !s.Terminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}
}

func TestTokenEqualIgnoresCase(t *testing.T) {
	a := Token{Address: "0x2cFc85d8E48F8EAB294be644d9E25C3030863003"}
	b := Token{Address: "0x2cfc85d8e48f8eab294be644d9e25c3030863003"}
	if !a.Equal(b) {
		t.Fatalf("expected equal tokens")
	}
	if a.Addr() != b.Addr() {
		t.Fatalf("addresses differ")
	}
}

func TestQuoteCloneIsDeep(t *testing.T) {
	q := &Quote{
		AmountIn:        big.NewInt(100),
		AmountOut:       big.NewInt(200),
		MinimumReceived: big.NewInt(199),
		Route:           []string{"WLD", "USDC"},
	}
	c := q.Clone()
	c.AmountOut.SetInt64(1)
	c.Route[0] = "ETH"

	if q.AmountOut.Int64() != 200 || q.Route[0] != "WLD" {
		t.Fatalf("clone shares state with original: %+v", q)
	}
	if c.FeeAmount != nil {
		t.Fatalf("nil fields should stay nil")
	}
	var nilQuote *Quote
	if nilQuote.Clone() != nil {
		t.Fatalf("nil clone should be nil")
	}
}
