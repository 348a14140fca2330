package redisstore

import (
	"context"
	"time"

	"toolprice-service/internal/application"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "toolprice:idem:"

var _ application.IdempotencyStore = (*Store)(nil)

// Store reserves idempotency keys with SET NX and a TTL.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl}
}

func (s *Store) TryReserve(ctx context.Context, key string) (bool, error) {
	return s.Client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), s.TTL).Result()
}

func (s *Store) Release(ctx context.Context, key string) error {
	return s.Client.Del(ctx, keyPrefix+key).Err()
}
