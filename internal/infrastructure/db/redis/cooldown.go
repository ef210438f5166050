package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SignupCooldown limits how often a confirmation code is mailed to one
// address. Key format: signup:cooldown:<email>
type SignupCooldown struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSignupCooldown creates a SignupCooldown. A non-positive ttl disables it.
func NewSignupCooldown(client *redis.Client, ttl time.Duration) *SignupCooldown {
	return &SignupCooldown{client: client, ttl: ttl}
}

// Acquire takes the slot for email and reports false when one is already
// held.
func (c *SignupCooldown) Acquire(ctx context.Context, email string) (bool, error) {
	if c.ttl <= 0 {
		return true, nil
	}
	ok, err := c.client.SetNX(ctx, c.key(email), "1", c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown acquire: %w", err)
	}
	return ok, nil
}

// Release frees the slot after a failed delivery so the caller may retry.
func (c *SignupCooldown) Release(ctx context.Context, email string) error {
	if c.ttl <= 0 {
		return nil
	}
	if err := c.client.Del(ctx, c.key(email)).Err(); err != nil {
		return fmt.Errorf("cooldown release: %w", err)
	}
	return nil
}

func (c *SignupCooldown) key(email string) string {
	return "signup:cooldown:" + email
}
