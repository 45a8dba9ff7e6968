package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/mercato/backoffice/internal/discounts/domain"
)

// Counter tracks coupon usage in Redis. INCR is atomic, so the
// check-and-increment cannot race: the reservation that pushes the count
// past the limit is rolled back before the error is returned.
type Counter struct {
	client *redis.Client
}

func NewCounter(client *redis.Client) *Counter {
	return &Counter{client: client}
}

func usageKey(couponID string) string {
	return "coupon:usage:" + couponID
}

// Reserve claims one redemption slot and returns the new usage count.
func (c *Counter) Reserve(ctx context.Context, couponID string, limit int) (int, error) {
	count, err := c.client.Incr(ctx, usageKey(couponID)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment coupon usage: %w", err)
	}

	if count > int64(limit) {
		if err := c.client.Decr(ctx, usageKey(couponID)).Err(); err != nil {
			return 0, fmt.Errorf("roll back coupon usage: %w", err)
		}
		return 0, domain.ErrUsageLimitReached
	}

	return int(count), nil
}

// Release returns a previously reserved slot, e.g. when the order is
// canceled before payment.
func (c *Counter) Release(ctx context.Context, couponID string) error {
	if err := c.client.Decr(ctx, usageKey(couponID)).Err(); err != nil {
		return fmt.Errorf("decrement coupon usage: %w", err)
	}
	return nil
}

// Current reads the usage count; a missing key means zero redemptions.
func (c *Counter) Current(ctx context.Context, couponID string) (int, error) {
	count, err := c.client.Get(ctx, usageKey(couponID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read coupon usage: %w", err)
	}
	return count, nil
}
