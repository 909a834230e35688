package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/config"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("QE_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	c, err := NewClient(config.RedisConfig{Addr: addr, PoolSize: 2})
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetSetDeletePrefix(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	prefix := "qe-test:" + t.Name() + ":"

	_, ok, err := c.Get(ctx, prefix+"missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, prefix+"a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, prefix+"b", []byte("2"), time.Minute))

	val, ok, err := c.Get(ctx, prefix+"a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), val)

	n, err := c.DeletePrefix(ctx, prefix)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok, err = c.Get(ctx, prefix+"b")
	require.NoError(t, err)
	assert.False(t, ok)
}
