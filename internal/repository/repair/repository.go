package repair

import (
	"context"
	"time"

	"dabba-checkout/internal/domain"
)

// Entry is an order whose line items could not be written at commit time.
type Entry struct {
	ID         int64
	OrderID    string
	Items      []domain.OrderItem
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	ResolvedAt    *time.Time
	AbandonedAt   *time.Time
}

type Repository interface {
	// Enqueue records the items to restore for an order. A second enqueue for
	// the same order keeps the first entry.
	Enqueue(ctx context.Context, orderID string, items []domain.OrderItem, reason string) error
	// FetchPending returns unresolved, unabandoned entries whose next attempt
	// is due at now, earliest first.
	FetchPending(ctx context.Context, now time.Time, limit int) ([]Entry, error)
	MarkResolved(ctx context.Context, id int64) error
	// MarkFailed counts a failed attempt and defers the entry until retryAt.
	MarkFailed(ctx context.Context, id int64, reason string, retryAt time.Time) error
	// MarkAbandoned counts a final failed attempt and stops retrying the entry.
	MarkAbandoned(ctx context.Context, id int64, reason string) error
}
