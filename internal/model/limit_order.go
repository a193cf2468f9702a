package model

import "time"

// OrderStatus is the lifecycle state of a limit order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderExecuted  OrderStatus = "executed"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
	OrderFailed    OrderStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s != OrderPending
}

// LimitOrder is a client-side sell order: swap AmountIn of TokenIn once the
// market price (TokenOut per TokenIn) reaches TargetPrice.
type LimitOrder struct {
	ID            string      `json:"id"`
	Owner         string      `json:"owner"`
	TokenIn       Token       `json:"token_in"`
	TokenOut      Token       `json:"token_out"`
	AmountIn      string      `json:"amount_in"`
	TargetPrice   float64     `json:"target_price"`
	ExpiresAt     time.Time   `json:"expires_at"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	ExecutedAt    *time.Time  `json:"executed_at,omitempty"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Error         string      `json:"error,omitempty"`
	Pair          string      `json:"pair"`
}

// OrderStats counts orders by status.
type OrderStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Executed  int `json:"executed"`
	Cancelled int `json:"cancelled"`
	Expired   int `json:"expired"`
	Failed    int `json:"failed"`
}
