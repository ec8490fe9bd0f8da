package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes KEYS[1] only when it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisStateStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStateStore namespaces every key with prefix so several deployments
// can share one Redis.
func NewRedisStateStore(client *redis.Client, prefix string) StateStore {
	return &redisStateStore{client: client, prefix: prefix}
}

func (s *redisStateStore) key(k string) string { return s.prefix + k }

func (s *redisStateStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.key(key), value, ttl).Result()
}

func (s *redisStateStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (s *redisStateStore) Release(ctx context.Context, key string, value []byte) (bool, error) {
	n, err := releaseScript.Run(ctx, s.client, []string{s.key(key)}, value).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
