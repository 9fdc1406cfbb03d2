package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

var ErrBrokerNotStarted = errors.New("broker not started")

// DeliverFunc hands a published frame to the local subscribers of topic.
type DeliverFunc func(topic string, frame []byte)

// Broker moves frames between publishers and every hub instance.
type Broker interface {
	Start(ctx context.Context, deliver DeliverFunc) error
	Publish(ctx context.Context, topic string, frame []byte) error
	Close() error
}

// LocalBroker delivers synchronously inside one process.
type LocalBroker struct {
	mu      sync.RWMutex
	deliver DeliverFunc
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{}
}

func (b *LocalBroker) Start(_ context.Context, deliver DeliverFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliver = deliver
	return nil
}

func (b *LocalBroker) Publish(_ context.Context, topic string, frame []byte) error {
	b.mu.RLock()
	deliver := b.deliver
	b.mu.RUnlock()

	if deliver == nil {
		return ErrBrokerNotStarted
	}
	deliver(topic, frame)
	return nil
}

func (b *LocalBroker) Close() error { return nil }

const redisChannelPrefix = "parlourpunch:topic:"

// RedisBroker relays frames through Redis Pub/Sub so that every server
// instance fans out each confirmed event to its own connections.
type RedisBroker struct {
	client *redis.Client
	logger *log.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBroker(client *redis.Client, logger *log.Logger) *RedisBroker {
	if logger == nil {
		logger = log.Default()
	}
	return &RedisBroker{client: client, logger: logger}
}

// Start returns once the pattern subscription is confirmed by Redis, so no
// frame published afterwards is missed.
func (b *RedisBroker) Start(ctx context.Context, deliver DeliverFunc) error {
	pubsub := b.client.PSubscribe(ctx, redisChannelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to broker channels: %w", err)
	}

	b.mu.Lock()
	b.pubsub = pubsub
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()

	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			topic := strings.TrimPrefix(msg.Channel, redisChannelPrefix)
			deliver(topic, []byte(msg.Payload))
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			b.Close()
		case <-done:
		}
	}()

	return nil
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, frame []byte) error {
	b.mu.Lock()
	started := b.pubsub != nil
	b.mu.Unlock()
	if !started {
		return ErrBrokerNotStarted
	}

	if err := b.client.Publish(ctx, redisChannelPrefix+topic, frame).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Close ends the subscription and waits for the delivery loop to exit.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	pubsub, done := b.pubsub, b.done
	b.pubsub = nil
	b.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	if err != nil {
		b.logger.Printf("broker close: %v", err)
	}
	return err
}
