package repair

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dabba-checkout/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Enqueue(ctx context.Context, orderID string, items []domain.OrderItem, reason string) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO order_repairs (order_id, items, last_error)
VALUES ($1, $2, $3)
ON CONFLICT (order_id) DO NOTHING
`, orderID, data, reason)
	if err != nil {
		return fmt.Errorf("enqueue repair: %w", err)
	}
	return nil
}

func (r *postgresRepo) FetchPending(ctx context.Context, now time.Time, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, order_id::text, items, attempts, last_error, next_attempt_at, created_at, resolved_at, abandoned_at
FROM order_repairs
WHERE resolved_at IS NULL
  AND abandoned_at IS NULL
  AND next_attempt_at <= $1
ORDER BY next_attempt_at, id
LIMIT $2
`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending repairs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var itemsJSON []byte
		if err := rows.Scan(&e.ID, &e.OrderID, &itemsJSON, &e.Attempts, &e.LastError, &e.NextAttemptAt, &e.CreatedAt, &e.ResolvedAt, &e.AbandonedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(itemsJSON, &e.Items); err != nil {
			return nil, fmt.Errorf("decode repair %d items: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *postgresRepo) MarkResolved(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE order_repairs SET resolved_at = now() WHERE id = $1 AND resolved_at IS NULL`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) MarkFailed(ctx context.Context, id int64, reason string, retryAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
UPDATE order_repairs
SET attempts = attempts + 1,
    last_error = $2,
    next_attempt_at = $3
WHERE id = $1 AND resolved_at IS NULL
`, id, reason, retryAt)
	return err
}

func (r *postgresRepo) MarkAbandoned(ctx context.Context, id int64, reason string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE order_repairs
SET attempts = attempts + 1,
    last_error = $2,
    abandoned_at = now()
WHERE id = $1 AND resolved_at IS NULL
`, id, reason)
	return err
}
