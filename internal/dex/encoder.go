package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"tradeEngine/internal/model"
)

// ActionCodes maps the V4 router actions used by a single-hop swap to their
// byte codes. Deployments that renumber actions supply their own table.
type ActionCodes struct {
	SwapExactInSingle byte
	SettleAll         byte
	TakeAll           byte
}

// DefaultActionCodes is the action table of the canonical V4 periphery.
var DefaultActionCodes = ActionCodes{
	SwapExactInSingle: 0x00,
	SettleAll:         0x11,
	TakeAll:           0x14,
}

// CommandV4Swap is the Universal Router command that dispatches V4 actions.
const CommandV4Swap byte = 0x10

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

var (
	exactInputSingleArgs = abi.Arguments{{Type: mustNewType("tuple", []abi.ArgumentMarshaling{
		{Name: "poolKey", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "currency0", Type: "address"},
			{Name: "currency1", Type: "address"},
			{Name: "fee", Type: "uint24"},
			{Name: "tickSpacing", Type: "int24"},
			{Name: "hooks", Type: "address"},
		}},
		{Name: "zeroForOne", Type: "bool"},
		{Name: "amountIn", Type: "uint128"},
		{Name: "amountOutMinimum", Type: "uint128"},
		{Name: "sqrtPriceLimitX96", Type: "uint160"},
		{Name: "hookData", Type: "bytes"},
	})}}
	currencyAmountArgs = abi.Arguments{
		{Type: mustNewType("address", nil)},
		{Type: mustNewType("uint256", nil)},
	}
	actionsArgs = abi.Arguments{
		{Type: mustNewType("bytes", nil)},
		{Type: mustNewType("bytes[]", nil)},
	}
)

// Field names follow the ABI component names so abi.Pack can match them.
type abiPoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       common.Address
}

type abiExactInputSingle struct {
	PoolKey           abiPoolKey
	ZeroForOne        bool
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
	HookData          []byte
}

// SwapParams describes one exact-input single-pool swap.
type SwapParams struct {
	PoolKey      model.PoolKey
	ZeroForOne   bool
	AmountIn     *big.Int
	MinAmountOut *big.Int
	// PriceLimit of nil or zero means no limit.
	PriceLimit *big.Int
	HookData   []byte
}

// Envelope is the router-level (commands, inputs) pair passed to execute.
type Envelope struct {
	Commands []byte
	Inputs   [][]byte
}

// Encoder builds V4 router action payloads. It holds no mutable state.
type Encoder struct {
	codes ActionCodes
}

func NewEncoder(codes ActionCodes) *Encoder {
	return &Encoder{codes: codes}
}

// EncodeSwap returns abi.encode(bytes actions, bytes[] params) for the
// sequence swap, settle-all, take-all.
func (e *Encoder) EncodeSwap(p SwapParams) ([]byte, error) {
	if p.AmountIn == nil || p.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("amount in must be positive")
	}
	if p.AmountIn.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("amount in exceeds uint128: %s", p.AmountIn)
	}
	minOut := new(big.Int)
	if p.MinAmountOut != nil {
		minOut.Set(p.MinAmountOut)
	}
	if minOut.Sign() < 0 {
		return nil, fmt.Errorf("minimum amount out is negative: %s", minOut)
	}
	if minOut.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("minimum amount out exceeds uint128: %s", minOut)
	}
	limit := new(big.Int)
	if p.PriceLimit != nil {
		limit.Set(p.PriceLimit)
	}
	if limit.Sign() < 0 || limit.BitLen() > 160 {
		return nil, fmt.Errorf("price limit out of uint160 range: %s", limit)
	}
	hookData := p.HookData
	if hookData == nil {
		hookData = []byte{}
	}

	swapParam, err := exactInputSingleArgs.Pack(abiExactInputSingle{
		PoolKey: abiPoolKey{
			Currency0:   p.PoolKey.Currency0,
			Currency1:   p.PoolKey.Currency1,
			Fee:         new(big.Int).SetUint64(uint64(p.PoolKey.Fee)),
			TickSpacing: big.NewInt(int64(p.PoolKey.TickSpacing)),
			Hooks:       p.PoolKey.Hooks,
		},
		ZeroForOne:        p.ZeroForOne,
		AmountIn:          new(big.Int).Set(p.AmountIn),
		AmountOutMinimum:  minOut,
		SqrtPriceLimitX96: limit,
		HookData:          hookData,
	})
	if err != nil {
		return nil, fmt.Errorf("pack swap params: %w", err)
	}

	currencyIn, currencyOut := p.PoolKey.Currency1, p.PoolKey.Currency0
	if p.ZeroForOne {
		currencyIn, currencyOut = p.PoolKey.Currency0, p.PoolKey.Currency1
	}

	settleParam, err := currencyAmountArgs.Pack(currencyIn, new(big.Int).Set(p.AmountIn))
	if err != nil {
		return nil, fmt.Errorf("pack settle params: %w", err)
	}
	takeParam, err := currencyAmountArgs.Pack(currencyOut, minOut)
	if err != nil {
		return nil, fmt.Errorf("pack take params: %w", err)
	}

	actions := []byte{e.codes.SwapExactInSingle, e.codes.SettleAll, e.codes.TakeAll}
	encoded, err := actionsArgs.Pack(actions, [][]byte{swapParam, settleParam, takeParam})
	if err != nil {
		return nil, fmt.Errorf("pack actions: %w", err)
	}
	return encoded, nil
}

// Envelope wraps the encoded actions as a single V4_SWAP router command.
func (e *Encoder) Envelope(p SwapParams) (Envelope, error) {
	input, err := e.EncodeSwap(p)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Commands: []byte{CommandV4Swap},
		Inputs:   [][]byte{input},
	}, nil
}

// DecodeActions splits an encoded V4 payload back into its action codes and params.
func DecodeActions(data []byte) ([]byte, [][]byte, error) {
	values, err := actionsArgs.Unpack(data)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack actions: %w", err)
	}
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("unpack actions: expected 2 values, got %d", len(values))
	}
	actions, ok := values[0].([]byte)
	if !ok {
		return nil, nil, fmt.Errorf("unpack actions: unexpected type %T", values[0])
	}
	params, ok := values[1].([][]byte)
	if !ok {
		return nil, nil, fmt.Errorf("unpack params: unexpected type %T", values[1])
	}
	return actions, params, nil
}

// ZeroForOne reports whether tokenIn is currency0 of the key.
func ZeroForOne(tokenIn common.Address, key model.PoolKey) bool {
	return tokenIn == key.Currency0
}

func mustNewType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", t, err))
	}
	return typ
}
