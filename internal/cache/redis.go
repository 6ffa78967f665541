package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisReceipts(client *redis.Client, ttl time.Duration) *RedisReceipts {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisReceipts{client: client, ttl: ttl}
}

// RedisReceipts is written only after an order row is committed, so a hit
// always names an existing order.
type RedisReceipts struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *RedisReceipts) Get(ctx context.Context, gatewayPaymentID string) (string, error) {
	orderID, err := r.client.Get(ctx, receiptKey(gatewayPaymentID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return orderID, nil
}

func (r *RedisReceipts) Set(ctx context.Context, gatewayPaymentID, orderID string) error {
	if err := r.client.Set(ctx, receiptKey(gatewayPaymentID), orderID, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func receiptKey(gatewayPaymentID string) string {
	return fmt.Sprintf("receipt:%s", gatewayPaymentID)
}
