package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"tradeEngine/internal/swap"
)

// Backend is the slice of the chain client needed to build and broadcast transactions.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// gasBufferPercent is added on top of the node's estimate.
const gasBufferPercent = 20

// KeySigner signs legacy transactions with a local private key.
type KeySigner struct {
	backend Backend
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	logger  *zap.Logger
}

// NewKeySigner parses a hex private key (with or without 0x).
func NewKeySigner(backend Backend, hexKey string, chainID uint64, logger *zap.Logger) (*KeySigner, error) {
	if backend == nil {
		return nil, fmt.Errorf("signer backend is nil")
	}
	key, err := parseKey(hexKey)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeySigner{
		backend: backend,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).SetUint64(chainID),
		logger:  logger,
	}, nil
}

// AddressFromKey derives the account address of a hex private key.
func AddressFromKey(hexKey string) (common.Address, error) {
	key, err := parseKey(hexKey)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func parseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// Address is the account the key controls.
func (s *KeySigner) Address() common.Address { return s.address }

func (s *KeySigner) SendTransaction(ctx context.Context, req swap.TxRequest) (swap.TxResult, error) {
	if req.From != (common.Address{}) && req.From != s.address {
		return failed(fmt.Sprintf("signer controls %s, not %s", s.address.Hex(), req.From.Hex())), nil
	}
	data, err := req.ABI.Pack(req.Method, req.Args...)
	if err != nil {
		return failed(fmt.Sprintf("pack %s: %v", req.Method, err)), nil
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return swap.TxResult{}, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return swap.TxResult{}, fmt.Errorf("gas price: %w", err)
	}

	to := req.To
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return failed(fmt.Sprintf("estimate gas: %v", err)), nil
	}
	gas += gas * gasBufferPercent / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return failed(fmt.Sprintf("sign: %v", err)), nil
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return failed(err.Error()), nil
	}

	s.logger.Info("transaction broadcast",
		zap.String("tx", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
		zap.String("to", to.Hex()),
	)
	return swap.TxResult{Status: swap.TxSuccess, TransactionID: signed.Hash().Hex()}, nil
}

func failed(reason string) swap.TxResult {
	return swap.TxResult{Status: swap.TxError, Error: reason}
}
