// Package reconcile checks the internal arithmetic of a buyer-submitted cart.
// It trusts nothing but the numbers it is given and never recomputes tax or
// delivery fees.
package reconcile

import (
	"fmt"

	"dabba-checkout/internal/domain"
	"github.com/shopspring/decimal"
)

type Reason string

const (
	ReasonEmptyCart         Reason = "empty_cart"
	ReasonMultipleCooks     Reason = "multiple_cooks"
	ReasonSubtotalMismatch  Reason = "subtotal_mismatch"
	ReasonTotalMismatch     Reason = "total_mismatch"
	ReasonIncompleteAddress Reason = "incomplete_address"
	ReasonInvalidAmount     Reason = "invalid_amount"
)

// Tolerance is the largest accepted difference between two amounts: one minor unit.
var Tolerance = decimal.New(1, -domain.MinorUnitDigits)

// Error is a reconciliation failure with a machine-readable reason.
type Error struct {
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type LineItem struct {
	CatalogItemID string
	CookID        string
	UnitPrice     decimal.Decimal
	Quantity      int
	DisplayName   string
}

// Snapshot is the buyer's proposed purchase as submitted at checkout.
type Snapshot struct {
	Items           []LineItem
	DeliveryAddress domain.Address
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	DeliveryFee     decimal.Decimal
	TotalAmount     decimal.Decimal
}

// Cart is a snapshot that passed every check, with amounts in minor units.
// Items carry no ids yet; Position is the index within the snapshot.
type Cart struct {
	CookID           string
	Items            []domain.OrderItem
	DeliveryAddress  domain.Address
	SubtotalCents    int64
	TaxCents         int64
	DeliveryFeeCents int64
	TotalCents       int64
}

// Reconcile validates the snapshot. Checks run in a fixed order and the first
// failure is returned.
func Reconcile(s Snapshot) (*Cart, error) {
	if len(s.Items) == 0 {
		return nil, &Error{Reason: ReasonEmptyCart, Message: "cart has no items"}
	}

	cookID := s.Items[0].CookID
	for _, item := range s.Items[1:] {
		if item.CookID != cookID {
			return nil, &Error{
				Reason:  ReasonMultipleCooks,
				Message: fmt.Sprintf("multiple cooks in one order: %q and %q", cookID, item.CookID),
			}
		}
	}

	// Amounts must be exact in minor units and in range before they are compared.
	subtotalCents, err := minorUnits("subtotal", s.Subtotal)
	if err != nil {
		return nil, err
	}
	taxCents, err := minorUnits("taxAmount", s.TaxAmount)
	if err != nil {
		return nil, err
	}
	feeCents, err := minorUnits("deliveryFee", s.DeliveryFee)
	if err != nil {
		return nil, err
	}
	totalCents, err := minorUnits("totalAmount", s.TotalAmount)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(s.Items))
	sum := decimal.Zero
	for i, item := range s.Items {
		if item.Quantity <= 0 {
			return nil, &Error{Reason: ReasonInvalidAmount, Message: fmt.Sprintf("items[%d].quantity must be positive", i)}
		}
		unitCents, err := minorUnits(fmt.Sprintf("items[%d].unitPrice", i), item.UnitPrice)
		if err != nil {
			return nil, err
		}
		line := lineTotal(item)
		lineCents, err := minorUnits(fmt.Sprintf("items[%d] line total", i), line)
		if err != nil {
			return nil, err
		}
		sum = sum.Add(line)
		items = append(items, domain.OrderItem{
			Position:       i,
			CatalogItemID:  item.CatalogItemID,
			CookID:         item.CookID,
			Quantity:       item.Quantity,
			UnitPriceCents: unitCents,
			DisplayName:    item.DisplayName,
			LineTotalCents: lineCents,
		})
	}

	if !withinTolerance(sum, s.Subtotal) {
		return nil, &Error{
			Reason:  ReasonSubtotalMismatch,
			Message: fmt.Sprintf("subtotal %s does not match item total %s", s.Subtotal.StringFixed(domain.MinorUnitDigits), sum.StringFixed(domain.MinorUnitDigits)),
		}
	}

	expectedTotal := s.Subtotal.Add(s.TaxAmount).Add(s.DeliveryFee)
	if !withinTolerance(expectedTotal, s.TotalAmount) {
		return nil, &Error{
			Reason:  ReasonTotalMismatch,
			Message: fmt.Sprintf("total %s does not equal subtotal + tax + delivery fee (%s)", s.TotalAmount.StringFixed(domain.MinorUnitDigits), expectedTotal.StringFixed(domain.MinorUnitDigits)),
		}
	}

	if !s.DeliveryAddress.Complete() {
		return nil, &Error{Reason: ReasonIncompleteAddress, Message: "delivery address requires street, city, state and postal code"}
	}

	return &Cart{
		CookID:           cookID,
		Items:            items,
		DeliveryAddress:  s.DeliveryAddress,
		SubtotalCents:    subtotalCents,
		TaxCents:         taxCents,
		DeliveryFeeCents: feeCents,
		TotalCents:       totalCents,
	}, nil
}

func minorUnits(field string, amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, &Error{Reason: ReasonInvalidAmount, Message: field + " must not be negative"}
	}
	cents, err := domain.ToMinorUnits(amount)
	if err != nil {
		return 0, &Error{Reason: ReasonInvalidAmount, Message: fmt.Sprintf("%s: %v", field, err)}
	}
	return cents, nil
}

func lineTotal(item LineItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
