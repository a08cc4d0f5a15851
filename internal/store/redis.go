package store

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisHashKey = "vfinder:settings:v1"

// Redis keeps all entries in a single hash so credentials and filter
// defaults survive restarts together.
type Redis struct {
	client redis.UniversalClient
	key    string
}

func NewRedis(client redis.UniversalClient, key string) *Redis {
	if client == nil {
		return nil
	}
	hashKey := strings.TrimSpace(key)
	if hashKey == "" {
		hashKey = defaultRedisHashKey
	}
	return &Redis{client: client, key: hashKey}
}

func (s *Redis) Get(ctx context.Context, keys []string) (map[string]string, error) {
	if s == nil || s.client == nil || len(keys) == 0 {
		return nil, nil
	}
	fields := make([]string, 0, len(keys))
	for _, key := range keys {
		if name := strings.TrimSpace(key); name != "" {
			fields = append(fields, name)
		}
	}
	if len(fields) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, s.key, fields...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	out := make(map[string]string, len(fields))
	for i, raw := range values {
		if raw == nil {
			continue
		}
		if value, ok := raw.(string); ok && value != "" {
			out[fields[i]] = value
		}
	}
	return out, nil
}

func (s *Redis) Set(ctx context.Context, entries map[string]string) error {
	if s == nil || s.client == nil || len(entries) == 0 {
		return nil
	}
	fields := make([]any, 0, len(entries)*2)
	for key, value := range entries {
		name := strings.TrimSpace(key)
		if name == "" {
			continue
		}
		fields = append(fields, name, value)
	}
	if len(fields) == 0 {
		return nil
	}
	return s.client.HSet(ctx, s.key, fields...).Err()
}
