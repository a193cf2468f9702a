package model

import "math/big"

const (
	StateSourceChain   = "chain"
	StateSourceDefault = "default"
)

// PoolState is a live read of slot0 and liquidity for a pool id.
type PoolState struct {
	SqrtPriceX96 *big.Int `json:"sqrt_price_x96"`
	Tick         int32    `json:"tick"`
	ProtocolFee  uint32   `json:"protocol_fee"`
	LPFee        uint32   `json:"lp_fee"`
	Liquidity    *big.Int `json:"liquidity"`
	// SlotSource and LiquiditySource say whether each half came from chain or a default.
	SlotSource      string `json:"slot_source"`
	LiquiditySource string `json:"liquidity_source"`
}
