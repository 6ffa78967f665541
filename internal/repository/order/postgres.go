package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"dabba-checkout/internal/db"
	"dabba-checkout/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentIDConstraint = "orders_gateway_payment_id_key"

const orderColumns = `id::text, buyer_id, cook_id, status, subtotal_cents, tax_cents, delivery_fee_cents, total_cents,
       delivery_address, payment_method, gateway_order_id, gateway_payment_id, payment_status, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) Repository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	addrJSON, err := json.Marshal(in.DeliveryAddress)
	if err != nil {
		return nil, err
	}

	q := `
INSERT INTO orders (
    id, buyer_id, cook_id, status, subtotal_cents, tax_cents, delivery_fee_cents, total_cents,
    delivery_address, payment_method, gateway_order_id, gateway_payment_id, payment_status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + orderColumns

	order, err := r.scanOrder(r.pool.QueryRow(
		ctx,
		q,
		uuid.NewString(),
		in.BuyerID,
		in.CookID,
		string(domain.OrderStatusPending),
		in.SubtotalCents,
		in.TaxCents,
		in.DeliveryFeeCents,
		in.TotalCents,
		addrJSON,
		in.PaymentMethod,
		in.GatewayOrderID,
		in.GatewayPaymentID,
		string(domain.PaymentStatusPaid),
	))
	if err != nil {
		if db.IsUniqueViolation(err, paymentIDConstraint) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

func (r *postgresRepo) GetByPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + `
FROM orders
WHERE gateway_payment_id = $1
`
	order, err := r.scanOrder(r.pool.QueryRow(ctx, q, gatewayPaymentID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("query order by payment id: %w", err)
	}
	return order, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`
	order, err := r.scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	const itemsQuery = `
SELECT id::text, order_id::text, position, catalog_item_id, cook_id, quantity,
       unit_price_cents, display_name, line_total_cents, created_at
FROM order_items
WHERE order_id = $1
ORDER BY position ASC
`
	rows, err := r.pool.Query(ctx, itemsQuery, order.ID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.Position,
			&item.CatalogItemID,
			&item.CookID,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.DisplayName,
			&item.LineTotalCents,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *postgresRepo) InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]string, len(items))
	positions := make([]int64, len(items))
	catalogIDs := make([]string, len(items))
	cookIDs := make([]string, len(items))
	quantities := make([]int64, len(items))
	unitPrices := make([]int64, len(items))
	names := make([]string, len(items))
	lineTotals := make([]int64, len(items))
	for i, item := range items {
		ids[i] = uuid.NewString()
		positions[i] = int64(item.Position)
		catalogIDs[i] = item.CatalogItemID
		cookIDs[i] = item.CookID
		quantities[i] = int64(item.Quantity)
		unitPrices[i] = item.UnitPriceCents
		names[i] = item.DisplayName
		lineTotals[i] = item.LineTotalCents
	}

	const q = `
INSERT INTO order_items (id, order_id, position, catalog_item_id, cook_id, quantity, unit_price_cents, display_name, line_total_cents)
SELECT u.id::uuid, $1::uuid, u.position::int, u.catalog_item_id, u.cook_id, u.quantity::int, u.unit_price_cents, u.display_name, u.line_total_cents
FROM unnest($2::text[], $3::int8[], $4::text[], $5::text[], $6::int8[], $7::int8[], $8::text[], $9::int8[])
    AS u(id, position, catalog_item_id, cook_id, quantity, unit_price_cents, display_name, line_total_cents)
ON CONFLICT (order_id, position) DO NOTHING
`
	cmd, err := r.pool.Exec(ctx, q, orderID, ids, positions, catalogIDs, cookIDs, quantities, unitPrices, names, lineTotals)
	if err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	if skipped := int64(len(items)) - cmd.RowsAffected(); skipped > 0 {
		r.logger.Info("order items already present", "orderId", orderID, "skipped", skipped)
	}
	return nil
}

func (r *postgresRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var status, paymentStatus string
	var addrJSON []byte
	if err := row.Scan(
		&o.ID,
		&o.BuyerID,
		&o.CookID,
		&status,
		&o.SubtotalCents,
		&o.TaxCents,
		&o.DeliveryFeeCents,
		&o.TotalCents,
		&addrJSON,
		&o.PaymentMethod,
		&o.GatewayOrderID,
		&o.GatewayPaymentID,
		&paymentStatus,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(addrJSON, &o.DeliveryAddress); err != nil {
		r.logger.Warn("decode delivery address", "orderId", o.ID, "error", err)
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	return &o, nil
}
