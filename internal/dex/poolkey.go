package dex

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"

	"tradeEngine/internal/model"
)

// MaxFee is the highest LP fee, in millionths, a pool can charge. It also
// keeps the tier inside the uint24 the pool key encodes.
const MaxFee uint32 = 999_999

// ErrInvalidFee is returned for fee tiers no pool can have.
var ErrInvalidFee = errors.New("invalid fee tier")

// ValidateFee rejects tiers at or above 100%.
func ValidateFee(fee uint32) error {
	if fee > MaxFee {
		return fmt.Errorf("%w: %d exceeds %d", ErrInvalidFee, fee, MaxFee)
	}
	return nil
}

// NewPoolKey sorts the pair so that currency0 < currency1.
func NewPoolKey(a, b common.Address, fee uint32, tickSpacing int32, hooks common.Address) model.PoolKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return model.PoolKey{
		Currency0:   a,
		Currency1:   b,
		Fee:         fee,
		TickSpacing: tickSpacing,
		Hooks:       hooks,
	}
}

// TickSpacingForFee maps the standard fee tiers to their tick spacing.
// Unmapped tiers default to 60.
func TickSpacingForFee(fee uint32) int32 {
	switch fee {
	case 100:
		return 1
	case 500:
		return 10
	case 3000:
		return 60
	case 10000:
		return 200
	default:
		return 60
	}
}

// PoolID is keccak256(abi.encode(PoolKey)). The key is a static tuple, so its
// encoding is five 32-byte words.
func PoolID(key model.PoolKey) common.Hash {
	encoded := make([]byte, 0, 5*32)
	encoded = append(encoded, common.LeftPadBytes(key.Currency0.Bytes(), 32)...)
	encoded = append(encoded, common.LeftPadBytes(key.Currency1.Bytes(), 32)...)
	encoded = append(encoded, math.U256Bytes(new(big.Int).SetUint64(uint64(key.Fee)))...)
	encoded = append(encoded, math.U256Bytes(big.NewInt(int64(key.TickSpacing)))...)
	encoded = append(encoded, common.LeftPadBytes(key.Hooks.Bytes(), 32)...)
	return crypto.Keccak256Hash(encoded)
}
