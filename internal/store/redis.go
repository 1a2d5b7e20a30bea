package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dreamweaver_backend/internal/logger"
)

// RedisStore - адаптер поверх Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore подключается и проверяет соединение через Ping
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("store: redis driver requires REDIS_ADDR")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		logger.StoreLog("redis", "get", key, err)
		return nil, false, err
	}
	return raw, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	err := s.client.Set(ctx, key, value, 0).Err()
	if err != nil {
		logger.StoreLog("redis", "set", key, err)
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	err := s.client.Del(ctx, key).Err()
	if err != nil {
		logger.StoreLog("redis", "delete", key, err)
	}
	return err
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
