package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobfeed/internal/model"
)

func newRedisStore(t *testing.T) *RedisEntryStore {
	t.Helper()
	url := os.Getenv("JOBFEED_TEST_REDIS_URL")
	if url == "" {
		t.Skip("JOBFEED_TEST_REDIS_URL not set")
	}
	s, err := NewRedisEntryStore(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisEntryStore_RoundTrip(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	query := "test|" + uuid.NewString() + "|1"
	t.Cleanup(func() { s.client.Del(ctx, redisKey(query, "gb")) })

	e, err := s.LoadEntry(ctx, query, "gb")
	require.NoError(t, err)
	assert.Nil(t, e)

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveEntry(ctx, model.CacheEntry{Query: query, Country: "gb", Response: json.RawMessage(`[1]`), CreatedAt: created}))
	require.NoError(t, s.SaveEntry(ctx, model.CacheEntry{Query: query, Country: "gb", Response: json.RawMessage(`[2]`), CreatedAt: created.Add(time.Hour)}))

	e, err = s.LoadEntry(ctx, query, "gb")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.JSONEq(t, `[2]`, string(e.Response))
	assert.True(t, e.CreatedAt.Equal(created.Add(time.Hour)))

	ttl, err := s.client.TTL(ctx, redisKey(query, "gb")).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "cache keys must not expire on their own")
}
