package model

// SwapRecord is the journal representation of a submitted swap.
type SwapRecord struct {
	TransactionID   string `json:"transaction_id"`
	Owner           string `json:"owner"`
	PoolID          string `json:"pool_id"`
	TokenIn         string `json:"token_in"`
	TokenOut        string `json:"token_out"`
	AmountIn        string `json:"amount_in"`
	MinimumReceived string `json:"minimum_received"`
	Deadline        int64  `json:"deadline"`
	SubmittedAt     string `json:"submitted_at"`
}
