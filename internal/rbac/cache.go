package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shipdesk/shipdesk/internal/shared"
)

const staffKeyPrefix = "rbac:staff:"

// DecisionCache remembers authorization decisions per staff principal.
// Every invalidation advances the principal's generation; a decision is
// stored only if the generation it was computed under is still current.
type DecisionCache interface {
	Get(ctx context.Context, staffID shared.ID, field string) (allowed, found bool, err error)
	Generation(ctx context.Context, staffID shared.ID) (int64, error)
	Put(ctx context.Context, staffID shared.ID, gen int64, field string, allowed bool) error
	Invalidate(ctx context.Context, staffID shared.ID) error
}

// RedisCache stores decisions in one hash per staff principal so a grant
// change can drop all of them with a single DEL. The generation lives in a
// separate counter key without expiry.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache instantiates the cache helper.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func staffKey(staffID shared.ID) string {
	return staffKeyPrefix + staffID.String()
}

func generationKey(staffID shared.ID) string {
	return staffKeyPrefix + staffID.String() + ":gen"
}

func (c *RedisCache) Get(ctx context.Context, staffID shared.ID, field string) (bool, bool, error) {
	val, err := c.client.HGet(ctx, staffKey(staffID), field).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

func (c *RedisCache) Generation(ctx context.Context, staffID shared.ID) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(staffID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Put writes the decision unless the generation moved past gen, either
// before the write or while it was in flight.
func (c *RedisCache) Put(ctx context.Context, staffID shared.ID, gen int64, field string, allowed bool) error {
	val := "0"
	if allowed {
		val = "1"
	}
	key, genKey := staffKey(staffID), generationKey(staffID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, val)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisCache) Invalidate(ctx context.Context, staffID shared.ID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(staffID))
		pipe.Del(ctx, staffKey(staffID))
		return nil
	})
	return err
}
