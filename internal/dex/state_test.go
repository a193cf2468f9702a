package dex

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"tradeEngine/internal/model"
)

type fakeCaller struct {
	parsed  abi.ABI
	outputs map[string][]interface{}
	errs    map[string]error
	calls   []ethereum.CallMsg
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls = append(f.calls, msg)
	method, err := f.parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	if err := f.errs[method.Name]; err != nil {
		return nil, err
	}
	return method.Outputs.Pack(f.outputs[method.Name]...)
}

func newStateViewFake(t *testing.T) *fakeCaller {
	t.Helper()
	parsed, err := StateViewABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	return &fakeCaller{parsed: parsed, outputs: map[string][]interface{}{}, errs: map[string]error{}}
}

func TestStateViewReaderSlot0(t *testing.T) {
	fake := newStateViewFake(t)
	sqrt, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	fake.outputs["getSlot0"] = []interface{}{sqrt, big.NewInt(-120), big.NewInt(0), big.NewInt(500)}

	stateView := common.HexToAddress("0x51D394718bc09297262e368c1A481217FdEB71eb")
	reader := NewStateViewReader(fake, stateView)
	id := PoolID(NewPoolKey(testWETH, testUSDC, 500, 10, common.Address{}))

	slot0, err := reader.Slot0(context.Background(), id)
	if err != nil {
		t.Fatalf("slot0: %v", err)
	}
	if slot0.SqrtPriceX96.Cmp(sqrt) != 0 {
		t.Fatalf("sqrt mismatch: %s", slot0.SqrtPriceX96)
	}
	if slot0.Tick != -120 || slot0.LPFee != 500 || slot0.ProtocolFee != 0 {
		t.Fatalf("unexpected slot0 %+v", slot0)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(fake.calls))
	}
	call := fake.calls[0]
	if call.To == nil || *call.To != stateView {
		t.Fatalf("call not sent to state view")
	}
	if !bytes.Equal(call.Data[4:36], id.Bytes()) {
		t.Fatalf("pool id not passed as argument")
	}
}

func TestStateViewReaderLiquidity(t *testing.T) {
	fake := newStateViewFake(t)
	fake.outputs["getLiquidity"] = []interface{}{big.NewInt(123456789)}
	reader := NewStateViewReader(fake, common.Address{})

	liquidity, err := reader.Liquidity(context.Background(), common.Hash{})
	if err != nil {
		t.Fatalf("liquidity: %v", err)
	}
	if liquidity.Cmp(big.NewInt(123456789)) != 0 {
		t.Fatalf("unexpected liquidity %s", liquidity)
	}
}

func TestStateViewReaderPropagatesCallErrors(t *testing.T) {
	fake := newStateViewFake(t)
	boom := errors.New("execution reverted")
	fake.errs["getSlot0"] = boom
	reader := NewStateViewReader(fake, common.Address{})

	if _, err := reader.Slot0(context.Background(), common.Hash{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped call error, got %v", err)
	}
}

func TestBalanceOf(t *testing.T) {
	parsed, err := ERC20ABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	fake := &fakeCaller{
		parsed:  parsed,
		outputs: map[string][]interface{}{"balanceOf": {big.NewInt(42)}},
		errs:    map[string]error{},
	}
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	balance, err := BalanceOf(context.Background(), fake, testUSDC, owner)
	if err != nil {
		t.Fatalf("balanceOf: %v", err)
	}
	if balance.Int64() != 42 {
		t.Fatalf("unexpected balance %s", balance)
	}
	if common.BytesToAddress(fake.calls[0].Data[4:36]) != owner {
		t.Fatalf("owner not passed as argument")
	}
}

func TestFetchTokenFallsBackOnMissingName(t *testing.T) {
	parsed, err := ERC20ABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	fake := &fakeCaller{
		parsed: parsed,
		outputs: map[string][]interface{}{
			"decimals": {uint8(6)},
			"symbol":   {"USDC"},
		},
		errs: map[string]error{"name": errors.New("reverted")},
	}

	token, err := FetchToken(context.Background(), fake, 480, testUSDC, nil)
	if err != nil {
		t.Fatalf("fetch token: %v", err)
	}
	if token.Decimals != 6 || token.Symbol != "USDC" || token.Name != "" {
		t.Fatalf("unexpected token %+v", token)
	}
	if token.ChainID != 480 || !token.Equal(model.Token{Address: testUSDC.Hex()}) {
		t.Fatalf("unexpected identity %+v", token)
	}
}
