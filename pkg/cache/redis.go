package cache

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a cache backed by a shared Redis instance, for deployments
// where several server processes must see the same local-cache contents.
type RedisStore struct {
	client *redis.Client
}

var _ Store = &RedisStore{}

func NewRedisStore(addr string) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("cache: redis addr is empty")
	}
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}, nil
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	if s == nil || s.client == nil {
		return "", false, errors.New("cache: redis store is not initialized")
	}
	val, err := s.client.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "cache: redis get")
	}
	return val, true, nil
}

func (s *RedisStore) Set(key, value string) error {
	if s == nil || s.client == nil {
		return errors.New("cache: redis store is not initialized")
	}
	if key == "" {
		return errors.New("cache: key is empty")
	}
	return errors.Wrap(s.client.Set(context.Background(), key, value, 0).Err(), "cache: redis set")
}

func (s *RedisStore) Remove(key string) error {
	if s == nil || s.client == nil {
		return errors.New("cache: redis store is not initialized")
	}
	return errors.Wrap(s.client.Del(context.Background(), key).Err(), "cache: redis del")
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
