package order

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"dabba-checkout/internal/domain"
	"dabba-checkout/internal/logging"
	"dabba-checkout/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_CreateIsUniquePerPayment(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, logging.Discard())
	created, err := repo.Create(ctx, sampleOrder("pay_1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != domain.OrderStatusPending || created.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("unexpected initial state %+v", created)
	}
	if created.DeliveryAddress.City != "Pune" {
		t.Fatalf("address not round-tripped: %+v", created.DeliveryAddress)
	}

	_, err = repo.Create(ctx, sampleOrder("pay_1"))
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	fetched, err := repo.GetByPaymentID(ctx, "pay_1")
	if err != nil {
		t.Fatalf("GetByPaymentID: %v", err)
	}
	if fetched.ID != created.ID {
		t.Fatalf("fetched %s, want %s", fetched.ID, created.ID)
	}

	if _, err := repo.GetByPaymentID(ctx, "pay_missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgres_ConcurrentCreateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, logging.Discard())
	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, sampleOrder("pay_race"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrAlreadyExists):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestPostgres_InsertItemsFreezesPriceAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, logging.Discard())
	created, err := repo.Create(ctx, sampleOrder("pay_items"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	items := []domain.OrderItem{
		{Position: 0, CatalogItemID: "A", CookID: "C1", Quantity: 2, UnitPriceCents: 10000, DisplayName: "Thali", LineTotalCents: 20000},
	}
	if err := repo.InsertItems(ctx, created.ID, items); err != nil {
		t.Fatalf("InsertItems: %v", err)
	}

	// A replay with a different price must not overwrite the stored row.
	items[0].UnitPriceCents = 12500
	items[0].LineTotalCents = 25000
	if err := repo.InsertItems(ctx, created.ID, items); err != nil {
		t.Fatalf("InsertItems replay: %v", err)
	}

	fetched, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(fetched.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(fetched.Items))
	}
	if got := fetched.Items[0]; got.UnitPriceCents != 10000 || got.LineTotalCents != 20000 {
		t.Fatalf("price was not frozen: %+v", got)
	}

	if _, err := repo.GetByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}
}

func sampleOrder(paymentID string) CreateOrderInput {
	return CreateOrderInput{
		BuyerID:          "buyer-1",
		CookID:           "C1",
		SubtotalCents:    20000,
		TaxCents:         1000,
		DeliveryFeeCents: 0,
		TotalCents:       21000,
		DeliveryAddress:  domain.Address{Street: "1 Hostel Rd", City: "Pune", State: "MH", PostalCode: "411001"},
		PaymentMethod:    "upi",
		GatewayOrderID:   "order_" + paymentID,
		GatewayPaymentID: paymentID,
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

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE order_repairs, order_items, orders RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
