package orders

import (
	"context"
	"fmt"

	"tradeEngine/internal/model"
	"tradeEngine/internal/storage/postgres"
)

// DBStore stores orders in the limit_orders table.
type DBStore struct {
	Store *postgres.Store
}

func (s *DBStore) Load(ctx context.Context) ([]model.LimitOrder, error) {
	if s == nil || s.Store == nil {
		return nil, nil
	}
	orders, err := s.Store.LoadOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return orders, nil
}

func (s *DBStore) Save(ctx context.Context, orders []model.LimitOrder) error {
	if s == nil || s.Store == nil {
		return nil
	}
	if err := s.Store.ReplaceOrders(ctx, orders); err != nil {
		return fmt.Errorf("save orders: %w", err)
	}
	return nil
}
