package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one JSON value per (user, signature).
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "guidify:rec"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(userID, signature string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, userID, signature)
}

func (s *RedisStore) Latest(ctx context.Context, userID, signature string) (map[string]any, bool, error) {
	raw, err := s.client.Get(ctx, s.key(userID, signature)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, fmt.Errorf("decode cached payload: %w", err)
	}
	return payload, true, nil
}

func (s *RedisStore) Save(ctx context.Context, userID, signature string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID, signature), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
