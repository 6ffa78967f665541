package order

import (
	"context"

	"dabba-checkout/internal/domain"
)

type CreateOrderInput struct {
	BuyerID          string
	CookID           string
	SubtotalCents    int64
	TaxCents         int64
	DeliveryFeeCents int64
	TotalCents       int64
	DeliveryAddress  domain.Address
	PaymentMethod    string
	GatewayOrderID   string
	GatewayPaymentID string
}

// Repository persists orders and their line items. Each method is a single
// statement; there is no transaction spanning orders and order_items.
type Repository interface {
	// Create inserts a pending, paid order. It returns domain.ErrAlreadyExists
	// when an order for the same gateway payment id is already stored.
	Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error)
	GetByPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// InsertItems appends the batch atomically. Rows already stored for the
	// same (order, position) are left untouched.
	InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) error
}
