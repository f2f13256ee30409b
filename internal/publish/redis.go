package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vk/datajob/internal/ctxlog"
)

// DefaultKeyPrefix is the key prefix used when none is configured.
const DefaultKeyPrefix = "datajob:workflow:"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Redis stores each document under <prefix><name> and its hash under
// <prefix><name>:hash. Unchanged definitions are not written again.
type Redis struct {
	client redisClient
	prefix string
}

// NewRedis connects to the server at url (redis://...).
func NewRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newRedis(client, prefix), nil
}

func newRedis(client redisClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Name implements Publisher.
func (r *Redis) Name() string { return "redis" }

func (r *Redis) key(doc *Document) string { return r.prefix + doc.Name }

// Publish implements Publisher.
func (r *Redis) Publish(ctx context.Context, doc *Document) error {
	logger := ctxlog.FromContext(ctx).With("key", r.key(doc))

	stored, err := r.client.Get(ctx, r.key(doc)+":hash").Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return fmt.Errorf("failed to read stored hash: %w", err)
	case stored == doc.Hash:
		logger.Debug("Definition unchanged, skipping.")
		return nil
	}

	data, err := doc.Payload()
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(doc), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store definition: %w", err)
	}
	if err := r.client.Set(ctx, r.key(doc)+":hash", doc.Hash, 0).Err(); err != nil {
		return fmt.Errorf("failed to store hash: %w", err)
	}
	logger.Debug("Stored definition in Redis.")
	return nil
}

// Close implements Publisher.
func (r *Redis) Close() error { return r.client.Close() }
