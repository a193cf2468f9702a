package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ContractCaller is the read-only slice of an RPC client used by this package.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Slot0 is the flat tuple returned by StateView.getSlot0.
type Slot0 struct {
	SqrtPriceX96 *big.Int
	Tick         int32
	ProtocolFee  uint32
	LPFee        uint32
}

// PoolStateReader reads live V4 pool state by pool id.
type PoolStateReader interface {
	Slot0(ctx context.Context, id common.Hash) (Slot0, error)
	Liquidity(ctx context.Context, id common.Hash) (*big.Int, error)
}

// StateViewReader reads pool state through the V4 StateView lens contract.
type StateViewReader struct {
	caller  ContractCaller
	address common.Address
}

func NewStateViewReader(caller ContractCaller, address common.Address) *StateViewReader {
	return &StateViewReader{caller: caller, address: address}
}

func (r *StateViewReader) Slot0(ctx context.Context, id common.Hash) (Slot0, error) {
	parsed, err := StateViewABI()
	if err != nil {
		return Slot0{}, fmt.Errorf("parse state view abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.address, parsed, "getSlot0", [32]byte(id))
	if err != nil {
		return Slot0{}, err
	}
	if len(values) < 4 {
		return Slot0{}, fmt.Errorf("getSlot0: expected 4 values, got %d", len(values))
	}

	sqrt, err := asBigInt(values[0])
	if err != nil {
		return Slot0{}, fmt.Errorf("sqrtPriceX96: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return Slot0{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return Slot0{}, fmt.Errorf("tick: %w", err)
	}
	protocolFeeInt, err := asBigInt(values[2])
	if err != nil {
		return Slot0{}, fmt.Errorf("protocol fee: %w", err)
	}
	protocolFee, err := uint24FromBig(protocolFeeInt)
	if err != nil {
		return Slot0{}, fmt.Errorf("protocol fee: %w", err)
	}
	lpFeeInt, err := asBigInt(values[3])
	if err != nil {
		return Slot0{}, fmt.Errorf("lp fee: %w", err)
	}
	lpFee, err := uint24FromBig(lpFeeInt)
	if err != nil {
		return Slot0{}, fmt.Errorf("lp fee: %w", err)
	}

	return Slot0{
		SqrtPriceX96: sqrt,
		Tick:         tick,
		ProtocolFee:  protocolFee,
		LPFee:        lpFee,
	}, nil
}

func (r *StateViewReader) Liquidity(ctx context.Context, id common.Hash) (*big.Int, error) {
	parsed, err := StateViewABI()
	if err != nil {
		return nil, fmt.Errorf("parse state view abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.address, parsed, "getLiquidity", [32]byte(id))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("getLiquidity: empty result")
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("liquidity: %w", err)
	}
	return liquidity, nil
}

func callMethod(ctx context.Context, caller ContractCaller, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
