package model

import "github.com/ethereum/go-ethereum/common"

// PoolKey identifies a V4 pool. Currency0 always sorts below Currency1.
type PoolKey struct {
	Currency0   common.Address `json:"currency0"`
	Currency1   common.Address `json:"currency1"`
	Fee         uint32         `json:"fee"`
	TickSpacing int32          `json:"tick_spacing"`
	Hooks       common.Address `json:"hooks"`
}

// PoolConfig is a known pool with display symbols.
type PoolConfig struct {
	Key     PoolKey `json:"key"`
	Symbol0 string  `json:"symbol0"`
	Symbol1 string  `json:"symbol1"`
}
