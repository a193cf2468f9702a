package dex

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrMalformedAmount is returned when an amount string is neither a decimal nor a raw integer.
var ErrMalformedAmount = errors.New("malformed amount")

// ParseAmount converts a human decimal ("1.5") into raw units scaled by
// decimals. Strings that are not decimals are retried as raw integers
// (base prefixes such as 0x are accepted). Fractional digits beyond the
// token's precision are rounded.
func ParseAmount(input string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedAmount)
	}

	if d, err := decimal.NewFromString(s); err == nil {
		if d.IsNegative() {
			return nil, fmt.Errorf("%w: negative %q", ErrMalformedAmount, input)
		}
		return d.Shift(int32(decimals)).Round(0).BigInt(), nil
	}

	if raw, ok := new(big.Int).SetString(s, 0); ok {
		if raw.Sign() < 0 {
			return nil, fmt.Errorf("%w: negative %q", ErrMalformedAmount, input)
		}
		return raw, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, input)
}

// ParseAmountLenient is ParseAmount with the quoting policy applied: an
// unparsable amount becomes zero and is logged instead of returned.
func ParseAmountLenient(input string, decimals uint8, logger *zap.Logger) *big.Int {
	amount, err := ParseAmount(input, decimals)
	if err != nil {
		if logger != nil {
			logger.Warn("amount coerced to zero", zap.String("amount", input), zap.Error(err))
		}
		return new(big.Int)
	}
	return amount
}

// FormatAmount renders raw units as a human decimal without trailing zeros.
func FormatAmount(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// AmountToFloat converts raw units to a float64 in human units.
func AmountToFloat(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(raw, -int32(decimals)).Float64()
	return f
}
