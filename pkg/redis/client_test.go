package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		url         string
		expectError bool
	}{
		{
			name:        "Valid Redis URL",
			url:         "redis://" + mr.Addr(),
			expectError: false,
		},
		{
			name:        "Invalid URL",
			url:         "invalid://url",
			expectError: true,
		},
		{
			name:        "Empty URL",
			url:         "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, "test", nil)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client.KeyBuilder)
			assert.Equal(t, "test", client.KeyBuilder.GetPrefix())
			assert.NoError(t, client.Close())
		})
	}
}

func TestClient_Get(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("test:key1", "value1"))

	val, found, err := client.Get(ctx, "test:key1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value1", val)

	val, found, err = client.Get(ctx, "test:missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)
}

func TestClient_GetMultiple(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("a", "1"))
	require.NoError(t, mr.Set("c", "3"))

	vals, err := client.GetMultiple(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "c": "3"}, vals)

	empty, err := client.GetMultiple(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestClient_SetAndSetWithExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:permanent", 42))
	val, err := mr.Get("test:permanent")
	require.NoError(t, err)
	assert.Equal(t, "42", val)
	assert.Equal(t, time.Duration(0), mr.TTL("test:permanent"))

	require.NoError(t, client.SetWithExpiry(ctx, "test:temp", "x", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("test:temp"))
}

func TestClient_Incr(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	v, err := client.Incr(ctx, "test:counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	require.NoError(t, mr.Set("test:counter2", "9"))
	v, err = client.Incr(ctx, "test:counter2")
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)

	require.NoError(t, mr.Set("test:notnumber", "abc"))
	_, err = client.Incr(ctx, "test:notnumber")
	assert.Error(t, err)
}

func TestClient_IncrThenExpire(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	v, err := client.IncrThenExpire(ctx, "test:rl", 60*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, 60*time.Second, mr.TTL("test:rl"))

	mr.FastForward(30 * time.Second)

	v, err = client.IncrThenExpire(ctx, "test:rl", 60*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, 60*time.Second, mr.TTL("test:rl"), "expiry is refreshed on every increment")

	mr.FastForward(61 * time.Second)
	assert.False(t, mr.Exists("test:rl"))
}

func TestClient_Expire(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("test:exp", "v"))
	require.NoError(t, client.Expire(ctx, "test:exp", time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("test:exp"))
}

func TestClient_AddToSet(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	added, err := client.AddToSet(ctx, "test:set", "A")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = client.AddToSet(ctx, "test:set", "A")
	require.NoError(t, err)
	assert.False(t, added)

	added, err = client.AddToSet(ctx, "test:set", "B")
	require.NoError(t, err)
	assert.True(t, added)

	size, err := client.SetSize(ctx, "test:set")
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	members, err := mr.Members("test:set")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, members)

	size, err = client.SetSize(ctx, "test:absent")
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

func TestClient_PushAndTrim(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	for _, v := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, client.PushAndTrim(ctx, "test:list", v, 3))
	}

	vals, err := client.ListRange(ctx, "test:list", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "4", "3"}, vals, "newest entries first, capped at maxLength")

	assert.Error(t, client.PushAndTrim(ctx, "test:list", "x", 0))
}

func TestClient_DeleteAndExists(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("test:key1", "value1"))
	require.NoError(t, mr.Set("test:key2", "value2"))

	n, err := client.Exists(ctx, "test:key1", "test:key2", "test:key3")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, client.Delete(ctx, "test:key1", "test:key2"))
	require.NoError(t, client.Delete(ctx))

	n, err = client.Exists(ctx, "test:key1", "test:key2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestClient_SetMultiple(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	err := client.SetMultiple(ctx, map[string]interface{}{
		"test:m1": 1,
		"test:m2": "two",
	}, 0)
	require.NoError(t, err)

	v1, _ := mr.Get("test:m1")
	v2, _ := mr.Get("test:m2")
	assert.Equal(t, "1", v1)
	assert.Equal(t, "two", v2)
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	assert.NoError(t, client.Health(ctx))

	mr.Close()
	assert.Error(t, client.Health(ctx))
}

func TestPrefixForLog(t *testing.T) {
	assert.Equal(t, "short", prefixForLog("short"))
	long := "prod:visitors:rate_limit:0123456789abcdef"
	assert.Equal(t, long[:24]+"…", prefixForLog(long))
}
