package storage

import (
	"context"

	"tradeEngine/internal/model"
)

// SwapJournal is a sink for executed swaps.
type SwapJournal interface {
	AppendSwap(ctx context.Context, record model.SwapRecord) error
}
