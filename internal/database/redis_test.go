package database

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions("redis://:secret@cache.internal:6380/3")
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, RedisClientName, opts.ClientName)
	assert.Equal(t, RedisDialTimeout, opts.DialTimeout)
	assert.Equal(t, RedisPoolSize, opts.PoolSize)
}

func TestRedisOptions_KeepsPoolSizeFromURL(t *testing.T) {
	opts, err := redisOptions("redis://localhost:6379/0?pool_size=4")
	require.NoError(t, err)
	assert.Equal(t, 4, opts.PoolSize)
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url", log.New(io.Discard, "", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parsing redis URL")
}

func TestNewRedisClient_GivesUpWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRedisClient(ctx, "redis://127.0.0.1:1/0", log.New(io.Discard, "", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error pinging redis")
}
