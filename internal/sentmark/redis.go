package sentmark

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/djlord-it/birthday-reminder/internal/domain"
)

type RedisMarker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMarker(client *redis.Client, ttl time.Duration) *RedisMarker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisMarker{client: client, ttl: ttl}
}

// Claim sets the occurrence key if absent. It returns false when another
// run already holds it.
func (m *RedisMarker) Claim(ctx context.Context, job domain.NotificationJob) (bool, error) {
	ok, err := m.client.SetNX(ctx, Key(job), time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis setnx")
	}
	return ok, nil
}

func (m *RedisMarker) Release(ctx context.Context, job domain.NotificationJob) error {
	if err := m.client.Del(ctx, Key(job)).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}

// Ping verifies connectivity; used at startup and by the health endpoint.
func (m *RedisMarker) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis ping")
	}
	return nil
}
