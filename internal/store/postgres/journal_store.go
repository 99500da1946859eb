package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// JournalStore records order attempts and trade outcomes. It implements
// domain.Recorder.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a JournalStore backed by the given connection pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

// RecordOrder appends one submission attempt.
func (s *JournalStore) RecordOrder(ctx context.Context, rec domain.OrderRecord) error {
	const query = `
		INSERT INTO copy_orders (
			run_id, trade_key, strategy, side, asset_id, order_type,
			amount, price, fee_rate_bps,
			success, order_id, status, filled, message, error, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16
		)`

	_, err := s.pool.Exec(ctx, query,
		rec.RunID, string(rec.TradeKey), string(rec.Strategy),
		string(rec.Request.Side), rec.Request.AssetID, string(rec.Request.Type),
		rec.Request.Amount, rec.Request.Price, rec.Request.FeeRateBps,
		rec.Result.Success, nullable(rec.Result.OrderID), nullable(rec.Result.Status),
		rec.Result.Filled, nullable(rec.Result.Message), nullable(rec.Error),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record order for %s: %w", rec.TradeKey, err)
	}
	return nil
}

// RecordOutcome stores a trade's terminal state. A second outcome for the
// same run and trade replaces the first.
func (s *JournalStore) RecordOutcome(ctx context.Context, out domain.TradeOutcome) error {
	const query = `
		INSERT INTO copy_outcomes (
			run_id, trade_key, strategy, status, reason, asset_id, title,
			target_amount, filled_amount, orders, attempts, batch_count, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (run_id, trade_key) DO UPDATE SET
			strategy      = EXCLUDED.strategy,
			status        = EXCLUDED.status,
			reason        = EXCLUDED.reason,
			filled_amount = EXCLUDED.filled_amount,
			orders        = EXCLUDED.orders,
			attempts      = EXCLUDED.attempts,
			created_at    = EXCLUDED.created_at`

	_, err := s.pool.Exec(ctx, query,
		out.RunID, string(out.TradeKey), string(out.Strategy), string(out.Status),
		nullable(out.Reason), out.AssetID, nullable(out.Title),
		out.TargetAmount, out.FilledAmount, out.Orders, out.Attempts, out.BatchCount,
		out.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record outcome for %s: %w", out.TradeKey, err)
	}
	return nil
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
