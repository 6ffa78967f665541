package checkout

import (
	"errors"
	"fmt"
	"strings"

	"dabba-checkout/internal/domain"
	"dabba-checkout/internal/service/reconcile"
	"github.com/shopspring/decimal"
)

// Request is the checkout client's verification call: the gateway's payment
// assertion relayed verbatim plus the cart snapshot. All of it is untrusted.
// Amounts are in the currency's major unit.
type Request struct {
	GatewayOrderID   string              `json:"gatewayOrderId"`
	GatewayPaymentID string              `json:"gatewayPaymentId"`
	Signature        string              `json:"signature"`
	BuyerID          string              `json:"buyerId"`
	CartItems        []CartItem          `json:"cartItems"`
	DeliveryAddress  *domain.Address     `json:"deliveryAddress"`
	PaymentMethod    string              `json:"paymentMethod"`
	Subtotal         decimal.NullDecimal `json:"subtotal"`
	TaxAmount        decimal.NullDecimal `json:"taxAmount"`
	DeliveryFee      decimal.NullDecimal `json:"deliveryFee"`
	TotalAmount      decimal.NullDecimal `json:"totalAmount"`
}

type CartItem struct {
	CatalogItemID string              `json:"catalogItemId"`
	CookID        string              `json:"cookId"`
	UnitPrice     decimal.NullDecimal `json:"unitPrice"`
	Quantity      int                 `json:"quantity"`
	DisplayName   string              `json:"displayName"`
}

// Validate checks the request shape. It reports every missing field at once,
// then the first field with an impossible value.
func (r Request) Validate() error {
	var missing []string
	requireString := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	requireString("gatewayOrderId", r.GatewayOrderID)
	requireString("gatewayPaymentId", r.GatewayPaymentID)
	requireString("signature", r.Signature)
	requireString("buyerId", r.BuyerID)
	requireString("paymentMethod", r.PaymentMethod)
	if r.CartItems == nil {
		missing = append(missing, "cartItems")
	}
	if r.DeliveryAddress == nil {
		missing = append(missing, "deliveryAddress")
	}
	amounts := []struct {
		name  string
		value decimal.NullDecimal
	}{
		{"subtotal", r.Subtotal},
		{"taxAmount", r.TaxAmount},
		{"deliveryFee", r.DeliveryFee},
		{"totalAmount", r.TotalAmount},
	}
	for _, a := range amounts {
		if !a.value.Valid {
			missing = append(missing, a.name)
		}
	}
	for i, item := range r.CartItems {
		requireString(fmt.Sprintf("cartItems[%d].catalogItemId", i), item.CatalogItemID)
		requireString(fmt.Sprintf("cartItems[%d].cookId", i), item.CookID)
		if !item.UnitPrice.Valid {
			missing = append(missing, fmt.Sprintf("cartItems[%d].unitPrice", i))
		}
	}
	if len(missing) > 0 {
		return &Error{
			Kind:    KindMalformed,
			Code:    CodeMissingFields,
			Message: "missing required fields: " + strings.Join(missing, ", "),
			Fields:  missing,
		}
	}

	for _, a := range amounts {
		if err := checkAmount(a.name, a.value.Decimal); err != nil {
			return err
		}
	}
	for i, item := range r.CartItems {
		if item.Quantity <= 0 {
			return invalidField(fmt.Sprintf("cartItems[%d].quantity", i), "must be positive")
		}
		if err := checkAmount(fmt.Sprintf("cartItems[%d].unitPrice", i), item.UnitPrice.Decimal); err != nil {
			return err
		}
	}
	return nil
}

func checkAmount(name string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return invalidField(name, "must not be negative")
	}
	_, err := domain.ToMinorUnits(amount)
	switch {
	case errors.Is(err, domain.ErrSubMinorUnit):
		return invalidField(name, fmt.Sprintf("must have at most %d decimal places", domain.MinorUnitDigits))
	case errors.Is(err, domain.ErrAmountOutOfRange):
		return invalidField(name, "is too large")
	case err != nil:
		return invalidField(name, "is not a valid amount")
	}
	return nil
}

// Snapshot converts a validated request into the reconciler's input.
func (r Request) Snapshot() reconcile.Snapshot {
	items := make([]reconcile.LineItem, 0, len(r.CartItems))
	for _, item := range r.CartItems {
		name := strings.TrimSpace(item.DisplayName)
		if name == "" {
			name = item.CatalogItemID
		}
		items = append(items, reconcile.LineItem{
			CatalogItemID: item.CatalogItemID,
			CookID:        item.CookID,
			UnitPrice:     item.UnitPrice.Decimal,
			Quantity:      item.Quantity,
			DisplayName:   name,
		})
	}
	var addr domain.Address
	if r.DeliveryAddress != nil {
		addr = *r.DeliveryAddress
	}
	return reconcile.Snapshot{
		Items:           items,
		DeliveryAddress: addr,
		Subtotal:        r.Subtotal.Decimal,
		TaxAmount:       r.TaxAmount.Decimal,
		DeliveryFee:     r.DeliveryFee.Decimal,
		TotalAmount:     r.TotalAmount.Decimal,
	}
}

func invalidField(name, problem string) error {
	return &Error{
		Kind:    KindMalformed,
		Code:    CodeInvalidField,
		Message: fmt.Sprintf("%s %s", name, problem),
		Fields:  []string{name},
	}
}
