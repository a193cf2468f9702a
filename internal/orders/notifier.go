package orders

import (
	"go.uber.org/zap"

	"tradeEngine/internal/model"
)

// Notifier is told about every terminal transition the monitor makes.
type Notifier interface {
	Notify(order model.LimitOrder)
}

// LogNotifier writes one structured line per transition.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(order model.LimitOrder) {
	if n.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("order_id", order.ID),
		zap.String("pair", order.Pair),
		zap.String("amount_in", order.AmountIn),
		zap.Float64("target_price", order.TargetPrice),
	}
	switch order.Status {
	case model.OrderExecuted:
		n.Logger.Info("limit order executed", append(fields, zap.String("tx_id", order.TransactionID))...)
	case model.OrderFailed:
		n.Logger.Warn("limit order failed", append(fields, zap.String("error", order.Error))...)
	case model.OrderExpired:
		n.Logger.Info("limit order expired", fields...)
	default:
		n.Logger.Debug("limit order updated", append(fields, zap.String("status", string(order.Status)))...)
	}
}
