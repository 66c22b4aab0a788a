package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TheQwirl/qwirl-client/internal/model"
)

const sessionTTL = 10 * time.Minute

// RedisCache keeps session snapshots warm across CLI invocations.
// Snapshots are stored as JSON; the generation counter lives at a
// sibling key with the same TTL.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*model.QwirlSession, error) {
	data, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.QwirlSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, s *model.QwirlSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, sessionTTL).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Generation(ctx context.Context, key string) (uint64, error) {
	gen, err := c.client.Get(ctx, key+":gen").Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) CancelInflight(ctx context.Context, key string) error {
	genKey := key + ":gen"
	if err := c.client.Incr(ctx, genKey).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, genKey, sessionTTL).Err()
}

func (c *RedisCache) CommitFetched(ctx context.Context, key string, gen uint64, s *model.QwirlSession) (bool, error) {
	current, err := c.Generation(ctx, key)
	if err != nil {
		return false, err
	}
	if current != gen {
		return false, nil
	}
	return true, c.Set(ctx, key, s)
}
