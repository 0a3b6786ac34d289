package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisPersister stores cart snapshots as JSON values in Redis. Snapshots
// carry no TTL: the cart survives until it is cleared or superseded by a key
// version bump.
type RedisPersister struct {
	client *redis.Client
}

func NewRedisPersister(client *redis.Client) (*RedisPersister, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisPersister{client: client}, nil
}

func (r *RedisPersister) Load(ctx context.Context, key string) (*Cart, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart snapshot %q: %w", key, err)
	}
	return &c, nil
}

func (r *RedisPersister) Save(ctx context.Context, key string, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisPersister) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}
