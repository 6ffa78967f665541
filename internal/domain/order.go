package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// MinorUnitDigits is the number of fraction digits of the single supported currency.
const MinorUnitDigits = 2

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// Complete reports whether every address field carries a non-blank value.
func (a Address) Complete() bool {
	for _, v := range []string{a.Street, a.City, a.State, a.PostalCode} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

type Order struct {
	ID               string        `json:"id"`
	BuyerID          string        `json:"buyerId"`
	CookID           string        `json:"cookId"`
	Status           OrderStatus   `json:"status"`
	SubtotalCents    int64         `json:"subtotalCents"`
	TaxCents         int64         `json:"taxCents"`
	DeliveryFeeCents int64         `json:"deliveryFeeCents"`
	TotalCents       int64         `json:"totalCents"`
	DeliveryAddress  Address       `json:"deliveryAddress"`
	PaymentMethod    string        `json:"paymentMethod"`
	GatewayOrderID   string        `json:"gatewayOrderId"`
	GatewayPaymentID string        `json:"gatewayPaymentId"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	Items            []OrderItem   `json:"items,omitempty"`
}

// OrderItem is a line of a committed order. UnitPriceCents is the price the
// buyer paid and is never refreshed from the catalog.
type OrderItem struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	Position       int       `json:"position"`
	CatalogItemID  string    `json:"catalogItemId"`
	CookID         string    `json:"cookId"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	DisplayName    string    `json:"displayName"`
	LineTotalCents int64     `json:"lineTotalCents"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MaxAmountCents bounds every single amount and line total. Sums of amounts
// under the bound stay far from the int64 limit.
const MaxAmountCents int64 = 1_000_000_000_000_000

var (
	ErrSubMinorUnit       = errors.New("amount is finer than the currency's minor unit")
	ErrAmountOutOfRange   = errors.New("amount out of range")
	maxAmountCentsDecimal = decimal.NewFromInt(MaxAmountCents)
)

// ToMinorUnits converts a major-unit amount to minor units exactly. Amounts
// with fractions below one minor unit, or beyond MaxAmountCents in magnitude,
// are rejected rather than rounded or wrapped.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(MinorUnitDigits)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s", ErrSubMinorUnit, amount.String())
	}
	if shifted.Abs().GreaterThan(maxAmountCentsDecimal) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, amount.String())
	}
	return shifted.IntPart(), nil
}

// FromMinorUnits converts minor units back to a major-unit amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -MinorUnitDigits)
}
