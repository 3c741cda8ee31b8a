package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobfeed/internal/model"
)

const redisKeyPrefix = "jobfeed:cache:"

// RedisEntryStore keeps each entry in a hash. Keys carry no expiry; freshness
// is decided by Cache at read time like every other backend.
type RedisEntryStore struct {
	client *redis.Client
}

// NewRedisEntryStore connects to the server at rawURL (redis://...) and
// verifies it answers.
func NewRedisEntryStore(ctx context.Context, rawURL string) (*RedisEntryStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisEntryStore{client: client}, nil
}

func redisKey(query, country string) string {
	return redisKeyPrefix + query + ":" + country
}

func (s *RedisEntryStore) LoadEntry(ctx context.Context, query, country string) (*model.CacheEntry, error) {
	fields, err := s.client.HGetAll(ctx, redisKey(query, country)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", redisKey(query, country), err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parsing created_at of %s: %w", redisKey(query, country), err)
	}
	return &model.CacheEntry{
		Query:     query,
		Country:   country,
		Response:  json.RawMessage(fields["response"]),
		CreatedAt: createdAt,
	}, nil
}

func (s *RedisEntryStore) SaveEntry(ctx context.Context, e model.CacheEntry) error {
	key := redisKey(e.Query, e.Country)
	err := s.client.HSet(ctx, key, map[string]any{
		"query":      e.Query,
		"country":    e.Country,
		"response":   string(e.Response),
		"created_at": e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisEntryStore) Close() error {
	return s.client.Close()
}
