package model

import "math/big"

const (
	QuoteSourceChain     = "chain"
	QuoteSourceDefaults  = "defaults"
	QuoteSourceSimulated = "simulated"
	QuoteSourceLimit     = "limit_price"
)

// Quote is the result of pricing a single-hop exact-input swap.
// Amounts are raw token units.
type Quote struct {
	AmountIn           *big.Int `json:"amount_in"`
	AmountOut          *big.Int `json:"amount_out"`
	AmountOutFormatted string   `json:"amount_out_formatted"`
	PriceImpactPercent float64  `json:"price_impact_percent"`
	MinimumReceived    *big.Int `json:"minimum_received"`
	FeeAmount          *big.Int `json:"fee_amount"`
	Fee                uint32   `json:"fee"`
	Route              []string `json:"route"`
	SqrtPriceX96After  *big.Int `json:"sqrt_price_x96_after"`
	GasEstimate        uint64   `json:"gas_estimate"`
	// Simulated marks a low-confidence quote built without any chain state.
	Simulated bool   `json:"simulated"`
	Source    string `json:"source"`
}

// Clone returns a deep copy so cached quotes are never mutated by callers.
func (q *Quote) Clone() *Quote {
	if q == nil {
		return nil
	}
	out := *q
	out.AmountIn = cloneInt(q.AmountIn)
	out.AmountOut = cloneInt(q.AmountOut)
	out.MinimumReceived = cloneInt(q.MinimumReceived)
	out.FeeAmount = cloneInt(q.FeeAmount)
	out.SqrtPriceX96After = cloneInt(q.SqrtPriceX96After)
	out.Route = append([]string(nil), q.Route...)
	return &out
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
