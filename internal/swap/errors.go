package swap

import (
	"errors"

	"tradeEngine/internal/dex"
	"tradeEngine/internal/registry"
)

var (
	ErrNotConnected        = errors.New("wallet not connected")
	ErrSameToken           = errors.New("token in and token out must differ")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidQuote        = errors.New("quote has no minimum received amount")
	ErrSwapExecutionFailed = errors.New("swap execution failed")

	ErrMalformedAmount = dex.ErrMalformedAmount
	ErrConfigNotFound  = registry.ErrConfigNotFound
)

// SwapExecutionFailedError carries the signer's failure reason.
type SwapExecutionFailedError struct {
	Reason string
}

func (e *SwapExecutionFailedError) Error() string {
	return "swap execution failed: " + e.Reason
}

func (e *SwapExecutionFailedError) Is(target error) bool {
	return target == ErrSwapExecutionFailed
}
