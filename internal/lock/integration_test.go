//go:build integration

package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Integration(t *testing.T) {
	url := os.Getenv("SWITCHBOARD_TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/3"
	}
	ctx := context.Background()
	rdb, err := Dial(ctx, url)
	require.NoError(t, err, "Redis should be available for integration tests")
	defer rdb.Close()

	key := "switchboard:test:" + t.Name()
	rdb.Del(ctx, key)

	a, err := NewRedis(RedisOpts{Client: rdb, Key: key, TTL: 2 * time.Second})
	require.NoError(t, err)
	b, err := NewRedis(RedisOpts{Client: rdb, Key: key, TTL: 2 * time.Second})
	require.NoError(t, err)

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Unlock(ctx))
	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Unlock(ctx))
}
