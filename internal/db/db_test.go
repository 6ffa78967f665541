package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "orders_gateway_payment_id_key"}
	wrapped := fmt.Errorf("insert order: %w", dup)

	if !IsUniqueViolation(wrapped, "") {
		t.Fatalf("expected wrapped unique violation to match")
	}
	if !IsUniqueViolation(dup, "orders_gateway_payment_id_key") {
		t.Fatalf("expected constraint match")
	}
	if IsUniqueViolation(dup, "order_items_order_position_key") {
		t.Fatalf("expected constraint mismatch")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("boom"), "") {
		t.Fatalf("plain error is not a unique violation")
	}
}
