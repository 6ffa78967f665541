package cache

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("cache miss")

// Receipts maps gateway payment ids to committed order ids.
type Receipts interface {
	Get(ctx context.Context, gatewayPaymentID string) (string, error)
	Set(ctx context.Context, gatewayPaymentID, orderID string) error
}
