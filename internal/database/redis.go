package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// RedisClientName shows up in CLIENT LIST next to the broker's
	// pattern subscription.
	RedisClientName   = "parlourpunch"
	RedisDialTimeout  = 5 * time.Second
	RedisPoolSize     = 20
	redisPingAttempts = 3
)

// NewRedisClient connects the client shared by the live broker and the
// status view. The ping is retried briefly so a Redis that is still
// starting next to the server does not fail boot.
func NewRedisClient(ctx context.Context, redisURL string, logger *log.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = log.Default()
	}

	opts, err := redisOptions(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	for attempt := 1; ; attempt++ {
		err = client.Ping(ctx).Err()
		if err == nil {
			break
		}
		if attempt == redisPingAttempts || ctx.Err() != nil {
			client.Close()
			return nil, fmt.Errorf("error pinging redis at %s: %w", opts.Addr, err)
		}
		logger.Printf("redis at %s not ready (attempt %d): %v", opts.Addr, attempt, err)
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	logger.Printf("redis connected at %s (db %d)", opts.Addr, opts.DB)
	return client, nil
}

func redisOptions(redisURL string) (*redis.Options, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %w", err)
	}
	opts.ClientName = RedisClientName
	opts.DialTimeout = RedisDialTimeout
	if opts.PoolSize == 0 {
		opts.PoolSize = RedisPoolSize
	}
	return opts, nil
}
