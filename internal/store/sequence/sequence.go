// Package sequence produces human-readable ticket id candidates. The
// store checks every candidate for uniqueness before committing it, so
// sources only need to make collisions rare, not impossible.
package sequence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	prefix     = "TIC"
	counterKey = "support_desk:ticket_seq"
)

// Random produces ids from a random token. Collisions are possible and
// handled by the store's uniqueness retry.
type Random struct{}

// NewRandom returns a random id source.
func NewRandom() *Random {
	return &Random{}
}

// Next returns a fresh candidate id.
func (r *Random) Next(_ context.Context) (string, error) {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return prefix + token, nil
}

// RedisCounter produces monotonically increasing ids from a shared Redis
// counter, falling back to random candidates when Redis is unreachable.
type RedisCounter struct {
	client   *redis.Client
	fallback *Random
}

// NewRedisCounter builds a counter-backed source.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client, fallback: NewRandom()}
}

// Next returns the next id in the sequence.
func (c *RedisCounter) Next(ctx context.Context) (string, error) {
	if c.client == nil {
		return c.fallback.Next(ctx)
	}
	n, err := c.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return c.fallback.Next(ctx)
	}
	return fmt.Sprintf("%s%08d", prefix, n), nil
}
