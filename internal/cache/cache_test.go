package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/guidify/internal/metrics"
)

type memStore struct {
	mu      sync.Mutex
	entries map[string]map[string]any
	failGet error
	failPut error
	reads   int
}

func newMemStore() *memStore { return &memStore{entries: map[string]map[string]any{}} }

func (m *memStore) Latest(_ context.Context, userID, signature string) (map[string]any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.failGet != nil {
		return nil, false, m.failGet
	}
	p, ok := m.entries[userID+"|"+signature]
	return p, ok, nil
}

func (m *memStore) Save(_ context.Context, userID, signature string, payload map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut != nil {
		return m.failPut
	}
	m.entries[userID+"|"+signature] = payload
	return nil
}

func TestSignature(t *testing.T) {
	assert.Equal(t, "college_list_Engineering_87", CollegeSignature("pcm", 87))
	assert.Equal(t, "college_list_Science_87", CollegeSignature(" science ", 87))
	assert.Equal(t, CollegeSignature("Commerce", 90), CollegeSignature("business", 90))
	assert.NotEqual(t, CollegeSignature("Commerce", 90), CollegeSignature("Commerce", 91))
	assert.Equal(t, "nsqf_Adept_data", Signature("nsqf", "Adept", "data"))
}

func TestGetPutRoundTrip(t *testing.T) {
	store := newMemStore()
	c := New(store, nil, metrics.New())
	ctx := context.Background()

	_, ok := c.Get(ctx, "u1", "sig")
	assert.False(t, ok)

	out := c.Put(ctx, "u1", "sig", map[string]any{"colleges": []any{"IIT Bombay"}})
	assert.True(t, out.Stored)
	assert.NoError(t, out.Err)

	got, ok := c.Get(ctx, "u1", "sig")
	require.True(t, ok)
	assert.Equal(t, []any{"IIT Bombay"}, got["colleges"])

	_, ok = c.Get(ctx, "u2", "sig")
	assert.False(t, ok)
}

func TestAnonymousNeverTouchesStore(t *testing.T) {
	store := newMemStore()
	c := New(store, nil, nil)
	_, ok := c.Get(context.Background(), "", "sig")
	assert.False(t, ok)
	out := c.Put(context.Background(), "", "sig", map[string]any{"a": 1})
	assert.True(t, out.Skipped)
	assert.Zero(t, store.reads)
	assert.Empty(t, store.entries)
}

func TestStoreFailuresDegrade(t *testing.T) {
	store := newMemStore()
	store.failGet = errors.New("connection refused")
	store.failPut = errors.New("read-only")
	c := New(store, nil, nil)

	_, ok := c.Get(context.Background(), "u1", "sig")
	assert.False(t, ok)

	out := c.Put(context.Background(), "u1", "sig", map[string]any{"a": 1})
	assert.False(t, out.Stored)
	assert.EqualError(t, out.Err, "read-only")
}

func TestNilCache(t *testing.T) {
	var c *RecommendationCache
	_, ok := c.Get(context.Background(), "u", "s")
	assert.False(t, ok)
	assert.True(t, c.Put(context.Background(), "u", "s", map[string]any{}).Skipped)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	s := NewRedisStore(client, "guidify:test")
	require.NoError(t, s.Ping(ctx))
	t.Cleanup(func() { client.Del(ctx, s.key("u1", "sig")) })

	_, ok, err := s.Latest(ctx, "u1", "sig")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, "u1", "sig", map[string]any{"v": 1.0}))
	require.NoError(t, s.Save(ctx, "u1", "sig", map[string]any{"v": 2.0}))
	got, ok, err := s.Latest(ctx, "u1", "sig")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2.0, got["v"])
}
