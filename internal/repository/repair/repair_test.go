package repair

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"dabba-checkout/internal/domain"
	"dabba-checkout/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_EnqueueFetchResolve(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if _, err := pool.Exec(ctx, `TRUNCATE order_repairs, order_items, orders RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	var orderID string
	err := pool.QueryRow(ctx, `
INSERT INTO orders (buyer_id, cook_id, subtotal_cents, tax_cents, delivery_fee_cents, total_cents,
                    delivery_address, payment_method, gateway_order_id, gateway_payment_id, payment_status)
VALUES ('b', 'C1', 100, 0, 0, 100, '{}', 'upi', 'order_r', 'pay_r', 'paid')
RETURNING id::text`).Scan(&orderID)
	if err != nil {
		t.Fatalf("insert order: %v", err)
	}

	repo := NewPostgres(pool)
	items := []domain.OrderItem{{Position: 0, CatalogItemID: "A", CookID: "C1", Quantity: 1, UnitPriceCents: 100, LineTotalCents: 100}}
	if err := repo.Enqueue(ctx, orderID, items, "boom"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := repo.Enqueue(ctx, orderID, nil, "again"); err != nil {
		t.Fatalf("Enqueue duplicate: %v", err)
	}

	now := time.Now()
	pending, err := repo.FetchPending(ctx, now, 10)
	if err != nil {
		t.Fatalf("FetchPending: %v", err)
	}
	if len(pending) != 1 || len(pending[0].Items) != 1 || pending[0].LastError != "boom" {
		t.Fatalf("unexpected pending %+v", pending)
	}

	retryAt := now.Add(time.Hour)
	if err := repo.MarkFailed(ctx, pending[0].ID, "still down", retryAt); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	deferred, err := repo.FetchPending(ctx, now, 10)
	if err != nil {
		t.Fatalf("FetchPending: %v", err)
	}
	if len(deferred) != 0 {
		t.Fatalf("entry should wait until its retry time, got %+v", deferred)
	}
	due, err := repo.FetchPending(ctx, retryAt, 10)
	if err != nil {
		t.Fatalf("FetchPending: %v", err)
	}
	if len(due) != 1 || due[0].Attempts != 1 || due[0].LastError != "still down" {
		t.Fatalf("unexpected due entry %+v", due)
	}

	if err := repo.MarkResolved(ctx, pending[0].ID); err != nil {
		t.Fatalf("MarkResolved: %v", err)
	}
	if err := repo.MarkResolved(ctx, pending[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second resolve, got %v", err)
	}

	pending, err = repo.FetchPending(ctx, retryAt, 10)
	if err != nil {
		t.Fatalf("FetchPending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending repairs, got %d", len(pending))
	}
}

func TestPostgres_AbandonedEntriesLeaveTheQueue(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if _, err := pool.Exec(ctx, `TRUNCATE order_repairs, order_items, orders RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	var orderID string
	err := pool.QueryRow(ctx, `
INSERT INTO orders (buyer_id, cook_id, subtotal_cents, tax_cents, delivery_fee_cents, total_cents,
                    delivery_address, payment_method, gateway_order_id, gateway_payment_id, payment_status)
VALUES ('b', 'C1', 100, 0, 0, 100, '{}', 'upi', 'order_a', 'pay_a', 'paid')
RETURNING id::text`).Scan(&orderID)
	if err != nil {
		t.Fatalf("insert order: %v", err)
	}

	repo := NewPostgres(pool)
	if err := repo.Enqueue(ctx, orderID, nil, "boom"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	pending, err := repo.FetchPending(ctx, time.Now(), 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("FetchPending: %+v, %v", pending, err)
	}
	if err := repo.MarkAbandoned(ctx, pending[0].ID, "gave up"); err != nil {
		t.Fatalf("MarkAbandoned: %v", err)
	}
	pending, err = repo.FetchPending(ctx, time.Now().Add(24*time.Hour), 10)
	if err != nil {
		t.Fatalf("FetchPending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("abandoned entry still pending: %+v", pending)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := migrate.Apply(ctx, pool, nil); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}
