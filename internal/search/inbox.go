package search

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

const inboxPrefix = "search:inbox:"

type redisKV interface {
	Exists(ctx context.Context, keys ...string) *redislib.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redislib.StatusCmd
}

// RedisInbox records processed event ids in Redis with a TTL.
type RedisInbox struct {
	client redisKV
	prefix string
	ttl    time.Duration
}

// NewRedisInbox creates a Redis-backed inbox.
func NewRedisInbox(client redisKV, ttl time.Duration) *RedisInbox {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisInbox{
		client: client,
		prefix: inboxPrefix,
		ttl:    ttl,
	}
}

// Seen reports whether eventID was marked processed within the TTL.
func (i *RedisInbox) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := i.client.Exists(ctx, i.key(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkProcessed records eventID.
func (i *RedisInbox) MarkProcessed(ctx context.Context, eventID string) error {
	return i.client.Set(ctx, i.key(eventID), time.Now().UTC().Format(time.RFC3339), i.ttl).Err()
}

func (i *RedisInbox) key(eventID string) string {
	return fmt.Sprintf("%s%s", i.prefix, eventID)
}

// NewRedisClient creates a Redis client and performs a health check.
func NewRedisClient(ctx context.Context, url string) (*redislib.Client, error) {
	opts, err := redislib.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redislib.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}
