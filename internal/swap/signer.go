package swap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// TxStatus is the outcome reported by a signer.
type TxStatus string

const (
	TxSuccess TxStatus = "success"
	TxError   TxStatus = "error"
)

// TxRequest is an ABI-described contract call to sign and broadcast.
type TxRequest struct {
	From   common.Address
	To     common.Address
	ABI    abi.ABI
	Method string
	Args   []interface{}
	Value  *big.Int
}

// TxResult is the signer's report. TransactionID is set on success and
// Error on failure.
type TxResult struct {
	Status        TxStatus
	TransactionID string
	Error         string
}

// Signer signs and broadcasts transactions on behalf of a wallet.
// A returned error means the signer could not be reached at all.
type Signer interface {
	SendTransaction(ctx context.Context, req TxRequest) (TxResult, error)
}
