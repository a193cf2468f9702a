package swap

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tradeEngine/internal/dex"
	"tradeEngine/internal/model"
	"tradeEngine/internal/quote"
	"tradeEngine/internal/registry"
)

const testWallet = "0x00000000000000000000000000000000000000AA"

type stubReader struct {
	mu    sync.Mutex
	calls int
}

func (r *stubReader) Slot0(context.Context, common.Hash) (dex.Slot0, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return dex.Slot0{SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96), LPFee: 500}, nil
}

func (r *stubReader) Liquidity(context.Context, common.Hash) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (r *stubReader) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingSigner struct {
	requests []TxRequest
	result   TxResult
	err      error
}

func (s *recordingSigner) SendTransaction(ctx context.Context, req TxRequest) (TxResult, error) {
	if _, ok := ctx.Deadline(); !ok {
		return TxResult{}, errors.New("signer called without a deadline")
	}
	s.requests = append(s.requests, req)
	return s.result, s.err
}

type memoryJournal struct {
	records []model.SwapRecord
}

func (j *memoryJournal) AppendSwap(_ context.Context, record model.SwapRecord) error {
	j.records = append(j.records, record)
	return nil
}

type harness struct {
	reg      *registry.Registry
	reader   *stubReader
	signer   *recordingSigner
	journal  *memoryJournal
	executor *Executor
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := registry.WorldChain(common.Address{}, common.Address{})
	reader := &stubReader{}
	engine := quote.NewEngine(reg, reader, quote.Config{}, nil, zap.NewNop())
	signer := &recordingSigner{result: TxResult{Status: TxSuccess, TransactionID: "0xabc"}}
	journal := &memoryJournal{}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	executor := NewExecutor(reg, engine, dex.NewEncoder(dex.DefaultActionCodes), signer, Config{}, Options{
		Journal: journal,
		Logger:  zap.NewNop(),
		Now:     func() time.Time { return now },
	})
	return &harness{reg: reg, reader: reader, signer: signer, journal: journal, executor: executor, now: now}
}

func (h *harness) token(t *testing.T, symbol string) model.Token {
	t.Helper()
	token, ok := h.reg.TokenBySymbol(symbol)
	if !ok {
		t.Fatalf("token %s missing", symbol)
	}
	return token
}

func (h *harness) params(t *testing.T, in, out, amount string) Params {
	return Params{TokenIn: h.token(t, in), TokenOut: h.token(t, out), AmountIn: amount}
}

func TestExecuteSwapPreconditions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q := &model.Quote{AmountOut: big.NewInt(100), MinimumReceived: big.NewInt(99)}

	cases := []struct {
		name   string
		params Params
		quote  *model.Quote
		wallet string
		want   error
	}{
		{"no wallet", h.params(t, "ETH", "USDC", "1"), q, "  ", ErrNotConnected},
		{"same token", h.params(t, "ETH", "ETH", "1"), q, testWallet, ErrSameToken},
		{"malformed amount", h.params(t, "ETH", "USDC", "abc"), q, testWallet, ErrMalformedAmount},
		{"zero amount", h.params(t, "ETH", "USDC", "0"), q, testWallet, ErrInvalidAmount},
		{"missing quote", h.params(t, "ETH", "USDC", "1"), nil, testWallet, ErrInvalidQuote},
		{"zero floor", h.params(t, "ETH", "USDC", "1"), &model.Quote{MinimumReceived: new(big.Int)}, testWallet, ErrInvalidQuote},
		{"unknown pool", h.params(t, "ETH", "uXRP", "1"), q, testWallet, ErrConfigNotFound},
	}
	for _, tc := range cases {
		_, err := h.executor.ExecuteSwap(ctx, tc.params, tc.quote, tc.wallet)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if len(h.signer.requests) != 0 {
		t.Fatalf("signer must not be called when preconditions fail")
	}
}

func TestExecuteSwapSubmitsRouterCall(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.params(t, "ETH", "USDC", "1")

	q, err := h.executor.GetQuote(ctx, p)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	txID, err := h.executor.ExecuteSwap(ctx, p, q, testWallet)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if txID != "0xabc" {
		t.Fatalf("unexpected tx id %s", txID)
	}

	if len(h.signer.requests) != 1 {
		t.Fatalf("expected one signer call, got %d", len(h.signer.requests))
	}
	req := h.signer.requests[0]
	if req.To != registry.WorldChainContracts.UniversalRouter || req.Method != "execute" {
		t.Fatalf("unexpected target %s.%s", req.To.Hex(), req.Method)
	}
	if req.From != common.HexToAddress(testWallet) {
		t.Fatalf("unexpected sender %s", req.From.Hex())
	}
	if len(req.Args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(req.Args))
	}
	if commands := req.Args[0].([]byte); !bytes.Equal(commands, []byte{dex.CommandV4Swap}) {
		t.Fatalf("unexpected commands %x", commands)
	}
	inputs := req.Args[1].([][]byte)
	actions, _, err := dex.DecodeActions(inputs[0])
	if err != nil {
		t.Fatalf("decode actions: %v", err)
	}
	if !bytes.Equal(actions, []byte{0x00, 0x11, 0x14}) {
		t.Fatalf("unexpected actions %x", actions)
	}
	wantDeadline := h.now.Add(30 * time.Minute).Unix()
	if deadline := req.Args[2].(*big.Int); deadline.Int64() != wantDeadline {
		t.Fatalf("expected deadline %d, got %s", wantDeadline, deadline)
	}
	if _, err := req.ABI.Pack(req.Method, req.Args...); err != nil {
		t.Fatalf("request args do not match the router abi: %v", err)
	}

	if len(h.journal.records) != 1 {
		t.Fatalf("expected one journal record, got %d", len(h.journal.records))
	}
	record := h.journal.records[0]
	if record.TransactionID != "0xabc" || record.AmountIn != "1000000000000000000" || record.MinimumReceived != q.MinimumReceived.String() {
		t.Fatalf("unexpected journal record %+v", record)
	}
}

func TestExecuteSwapHonoursExplicitDeadline(t *testing.T) {
	h := newHarness(t)
	p := h.params(t, "ETH", "USDC", "1")
	p.Deadline = h.now.Add(5 * time.Minute)
	q := &model.Quote{AmountOut: big.NewInt(100), MinimumReceived: big.NewInt(99)}

	if _, err := h.executor.ExecuteSwap(context.Background(), p, q, testWallet); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := h.signer.requests[0].Args[2].(*big.Int).Int64(); got != p.Deadline.Unix() {
		t.Fatalf("expected deadline %d, got %d", p.Deadline.Unix(), got)
	}
}

func TestExecuteSwapInvalidatesQuoteCaches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.params(t, "ETH", "USDC", "1")

	q, err := h.executor.GetQuote(ctx, p)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if _, err := h.executor.GetQuote(ctx, p); err != nil {
		t.Fatalf("quote: %v", err)
	}
	if h.reader.count() != 1 {
		t.Fatalf("expected cached quote, got %d reads", h.reader.count())
	}

	if _, err := h.executor.ExecuteSwap(ctx, p, q, testWallet); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, err := h.executor.GetQuote(ctx, h.params(t, "USDC", "ETH", "1")); err != nil {
		t.Fatalf("quote: %v", err)
	}
	if _, err := h.executor.GetQuote(ctx, p); err != nil {
		t.Fatalf("quote: %v", err)
	}
	if h.reader.count() != 3 {
		t.Fatalf("expected fresh reads after the swap, got %d", h.reader.count())
	}
}

func TestExecuteSwapFailureIsTyped(t *testing.T) {
	h := newHarness(t)
	p := h.params(t, "ETH", "USDC", "1")
	q := &model.Quote{AmountOut: big.NewInt(100), MinimumReceived: big.NewInt(99)}

	h.signer.result = TxResult{Status: TxError, Error: "user rejected"}
	_, err := h.executor.ExecuteSwap(context.Background(), p, q, testWallet)
	if !errors.Is(err, ErrSwapExecutionFailed) {
		t.Fatalf("expected ErrSwapExecutionFailed, got %v", err)
	}
	var failed *SwapExecutionFailedError
	if !errors.As(err, &failed) || failed.Reason != "user rejected" {
		t.Fatalf("expected reason to be carried, got %v", err)
	}

	h.signer.err = errors.New("bridge unavailable")
	_, err = h.executor.ExecuteSwap(context.Background(), p, q, testWallet)
	if !errors.Is(err, ErrSwapExecutionFailed) {
		t.Fatalf("expected ErrSwapExecutionFailed for transport error, got %v", err)
	}
	if len(h.journal.records) != 0 {
		t.Fatalf("failed swaps must not be journaled")
	}
}

func TestGetQuoteRequiresConfiguredPool(t *testing.T) {
	h := newHarness(t)
	if _, err := h.executor.GetQuote(context.Background(), h.params(t, "ETH", "uXRP", "1")); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
	if _, err := h.executor.GetQuote(context.Background(), h.params(t, "WLD", "WLD", "1")); !errors.Is(err, ErrSameToken) {
		t.Fatalf("expected ErrSameToken, got %v", err)
	}
}

func TestQuoteAtPrice(t *testing.T) {
	h := newHarness(t)
	q, err := h.executor.QuoteAtPrice(h.token(t, "WLD"), h.token(t, "USDC"), "10", 1.1, 0.5)
	if err != nil {
		t.Fatalf("quote at price: %v", err)
	}
	if q.AmountOut.Int64() != 11_000_000 {
		t.Fatalf("expected 11000000, got %s", q.AmountOut)
	}
	if q.MinimumReceived.Int64() != 10_945_000 {
		t.Fatalf("expected 10945000, got %s", q.MinimumReceived)
	}
	if q.Source != model.QuoteSourceLimit || q.Fee != 1400 {
		t.Fatalf("unexpected source/fee %s/%d", q.Source, q.Fee)
	}

	if _, err := h.executor.QuoteAtPrice(h.token(t, "WLD"), h.token(t, "USDC"), "x", 1.1, 0.5); !errors.Is(err, ErrMalformedAmount) {
		t.Fatalf("expected ErrMalformedAmount, got %v", err)
	}
	if _, err := h.executor.QuoteAtPrice(h.token(t, "WLD"), h.token(t, "USDC"), "10", 0, 0.5); err == nil {
		t.Fatalf("expected error for zero price")
	}
}
