package postcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lysyi3m/landing-comb/app/content"
)

const DefaultRedisKey = "landing-comb:post-cache"

// RedisStore keeps the cache as one JSON value under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to addr and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, addr, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)
	return newRedisStore(client, key), nil
}

func newRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) ([]content.CachedPost, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", s.key, err)
	}
	return decodeRecords(val)
}

func (s *RedisStore) Replace(ctx context.Context, records []content.CachedPost) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeRecords(records []content.CachedPost) ([]byte, error) {
	if records == nil {
		records = []content.CachedPost{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode post cache: %w", err)
	}
	return data, nil
}

func decodeRecords(data []byte) ([]content.CachedPost, error) {
	var records []content.CachedPost
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse post cache: %w", err)
	}
	return records, nil
}
