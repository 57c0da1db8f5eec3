package redis_wrapper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	cfg := &RedisConfig{
		ConnectionURL:      "redis://:secret@localhost:6380/2",
		PoolSize:           7,
		DialTimeoutSeconds: 3,
		IdleTimeoutSeconds: 60,
	}
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)
	assert.Equal(t, time.Minute, opts.ConnMaxIdleTime)
}

func TestInitRedisBadURL(t *testing.T) {
	_, err := InitRedisWithBackoff(context.Background(), &RedisConfig{ConnectionURL: "http://nope", ConnectRetrySeconds: 30})
	assert.Error(t, err)
}

func TestInitRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := InitRedisWithBackoff(ctx, &RedisConfig{ConnectionURL: "redis://127.0.0.1:1", DialTimeoutSeconds: 1})
	assert.Error(t, err)
}
