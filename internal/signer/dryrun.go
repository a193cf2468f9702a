package signer

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"tradeEngine/internal/dex"
	"tradeEngine/internal/swap"
)

// DryRunSigner packs and logs calldata without broadcasting. The transaction
// id is keccak256 of the calldata. Router executions also have their V4
// action codes decoded into the log.
type DryRunSigner struct {
	logger *zap.Logger

	mu       sync.Mutex
	calldata [][]byte
	actions  [][]byte
}

func NewDryRunSigner(logger *zap.Logger) *DryRunSigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DryRunSigner{logger: logger}
}

func (s *DryRunSigner) SendTransaction(_ context.Context, req swap.TxRequest) (swap.TxResult, error) {
	data, err := req.ABI.Pack(req.Method, req.Args...)
	if err != nil {
		return failed("pack " + req.Method + ": " + err.Error()), nil
	}
	actions, err := v4Actions(req)
	if err != nil {
		s.logger.Debug("router actions not decoded", zap.Error(err))
	}
	s.mu.Lock()
	s.calldata = append(s.calldata, data)
	if actions != nil {
		s.actions = append(s.actions, actions)
	}
	s.mu.Unlock()

	id := crypto.Keccak256Hash(data).Hex()
	s.logger.Info("dry run transaction",
		zap.String("tx", id),
		zap.String("from", req.From.Hex()),
		zap.String("to", req.To.Hex()),
		zap.String("method", req.Method),
		zap.String("v4_actions", hexutil.Encode(actions)),
		zap.String("calldata", hexutil.Encode(data)),
	)
	return swap.TxResult{Status: swap.TxSuccess, TransactionID: id}, nil
}

// v4Actions returns the action codes of the first V4_SWAP command in a router
// execute call, or nil when the request carries none.
func v4Actions(req swap.TxRequest) ([]byte, error) {
	if req.Method != "execute" || len(req.Args) < 2 {
		return nil, nil
	}
	commands, ok := req.Args[0].([]byte)
	if !ok {
		return nil, nil
	}
	inputs, ok := req.Args[1].([][]byte)
	if !ok {
		return nil, nil
	}
	for i, cmd := range commands {
		if cmd != dex.CommandV4Swap || i >= len(inputs) {
			continue
		}
		actions, _, err := dex.DecodeActions(inputs[i])
		if err != nil {
			return nil, err
		}
		return actions, nil
	}
	return nil, nil
}

// Actions returns the decoded V4 action codes of each router swap so far.
func (s *DryRunSigner) Actions() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.actions...)
}

// Calldata returns every payload packed so far.
func (s *DryRunSigner) Calldata() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.calldata...)
}
