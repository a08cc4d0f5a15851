package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"videofinder/searchservice/internal/domain"
)

const redisCachePrefix = "vfinder:cache:"

// redisCacheEnvelope wraps a payload with its creation time. The key's
// Redis TTL alone is not enough: a mirror of the payload in another
// tier must expire relative to the original Put, not to when it was
// read back.
type redisCacheEnvelope struct {
	CreatedAt time.Time             `json:"createdAt"`
	Records   []domain.SourceRecord `json:"records"`
}

// RedisCacheBackend stores aggregation payloads in Redis with JSON
// serialization, so results survive process restarts and are shared
// between replicas.
type RedisCacheBackend struct {
	client *redis.Client
}

func NewRedisCacheBackend(client *redis.Client) *RedisCacheBackend {
	return &RedisCacheBackend{client: client}
}

func (r *RedisCacheBackend) Get(ctx context.Context, key string) ([]domain.SourceRecord, time.Time, bool, error) {
	data, err := r.client.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, err
	}
	var envelope redisCacheEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, time.Time{}, false, err
	}
	return envelope.Records, envelope.CreatedAt, true, nil
}

func (r *RedisCacheBackend) Set(ctx context.Context, key string, payload []domain.SourceRecord, createdAt time.Time, ttl time.Duration) error {
	data, err := json.Marshal(redisCacheEnvelope{CreatedAt: createdAt, Records: payload})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisCachePrefix+key, data, ttl).Err()
}

func (r *RedisCacheBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisCachePrefix+key).Err()
}

// Clear removes every cached payload under the prefix.
func (r *RedisCacheBackend) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, redisCachePrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *RedisCacheBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
