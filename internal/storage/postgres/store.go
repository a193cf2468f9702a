package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradeEngine/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS limit_orders (
	id             TEXT PRIMARY KEY,
	owner          TEXT NOT NULL,
	token_in       JSONB NOT NULL,
	token_out      JSONB NOT NULL,
	amount_in      TEXT NOT NULL,
	target_price   DOUBLE PRECISION NOT NULL,
	expires_at     TIMESTAMPTZ NOT NULL,
	status         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	executed_at    TIMESTAMPTZ,
	transaction_id TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT '',
	pair           TEXT NOT NULL DEFAULT '',
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS swaps (
	transaction_id   TEXT PRIMARY KEY,
	owner            TEXT NOT NULL,
	pool_id          TEXT NOT NULL,
	token_in         TEXT NOT NULL,
	token_out        TEXT NOT NULL,
	amount_in        TEXT NOT NULL,
	minimum_received TEXT NOT NULL,
	deadline         BIGINT NOT NULL,
	submitted_at     TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for limit orders and executed swaps.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// LoadOrders returns every stored order in creation order.
func (s *Store) LoadOrders(ctx context.Context) ([]model.LimitOrder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner, token_in, token_out, amount_in, target_price, expires_at,
			status, created_at, executed_at, transaction_id, error, pair
		FROM limit_orders
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.LimitOrder
	for rows.Next() {
		var (
			order             model.LimitOrder
			tokenIn, tokenOut []byte
			status            string
			executedAt        *time.Time
		)
		if err := rows.Scan(
			&order.ID,
			&order.Owner,
			&tokenIn,
			&tokenOut,
			&order.AmountIn,
			&order.TargetPrice,
			&order.ExpiresAt,
			&status,
			&order.CreatedAt,
			&executedAt,
			&order.TransactionID,
			&order.Error,
			&order.Pair,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(tokenIn, &order.TokenIn); err != nil {
			return nil, fmt.Errorf("decode token_in of %s: %w", order.ID, err)
		}
		if err := json.Unmarshal(tokenOut, &order.TokenOut); err != nil {
			return nil, fmt.Errorf("decode token_out of %s: %w", order.ID, err)
		}
		order.Status = model.OrderStatus(status)
		order.ExecutedAt = executedAt
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ReplaceOrders makes the table hold exactly orders, in one transaction.
func (s *Store) ReplaceOrders(ctx context.Context, orders []model.LimitOrder) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM limit_orders WHERE NOT (id = ANY($1))`, ids); err != nil {
		return fmt.Errorf("prune orders: %w", err)
	}

	if len(orders) > 0 {
		batch := &pgx.Batch{}
		for _, order := range orders {
			tokenIn, err := json.Marshal(order.TokenIn)
			if err != nil {
				return fmt.Errorf("encode token_in of %s: %w", order.ID, err)
			}
			tokenOut, err := json.Marshal(order.TokenOut)
			if err != nil {
				return fmt.Errorf("encode token_out of %s: %w", order.ID, err)
			}
			batch.Queue(`
				INSERT INTO limit_orders (
					id, owner, token_in, token_out, amount_in, target_price, expires_at,
					status, created_at, executed_at, transaction_id, error, pair, updated_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())
				ON CONFLICT (id)
				DO UPDATE SET
					status = EXCLUDED.status,
					executed_at = EXCLUDED.executed_at,
					transaction_id = EXCLUDED.transaction_id,
					error = EXCLUDED.error,
					updated_at = now()
			`,
				order.ID,
				order.Owner,
				tokenIn,
				tokenOut,
				order.AmountIn,
				order.TargetPrice,
				order.ExpiresAt,
				string(order.Status),
				order.CreatedAt,
				order.ExecutedAt,
				order.TransactionID,
				order.Error,
				order.Pair,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for range orders {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// AppendSwap records an executed swap. Replays of the same transaction are ignored.
func (s *Store) AppendSwap(ctx context.Context, record model.SwapRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO swaps (
			transaction_id, owner, pool_id, token_in, token_out, amount_in,
			minimum_received, deadline, submitted_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (transaction_id) DO NOTHING
	`,
		record.TransactionID,
		record.Owner,
		record.PoolID,
		record.TokenIn,
		record.TokenOut,
		record.AmountIn,
		record.MinimumReceived,
		record.Deadline,
		record.SubmittedAt,
	)
	return err
}
