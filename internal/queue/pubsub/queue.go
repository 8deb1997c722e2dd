// Package pubsub provides a queue backed by Google Cloud Pub/Sub, used when
// pre-warm completion runs in a separate deployment from the API.
package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// Config identifies the topic and subscription carrying cache keys.
type Config struct {
	TopicID        string
	SubscriptionID string
	Buffer         int
}

// Queue publishes cache keys to a Pub/Sub topic and feeds received keys to
// Dequeue through an internal channel. The Queue takes ownership of the
// client and closes it on Close.
type Queue struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
	ch     chan string
	cancel context.CancelFunc
	logger *zap.Logger
}

// New wraps an existing Pub/Sub client and verifies the topic exists.
func New(ctx context.Context, client *pubsub.Client, cfg Config, logger *zap.Logger) (*Queue, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if cfg.TopicID == "" {
		return nil, fmt.Errorf("topic id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	topic := client.Topic(cfg.TopicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %q: %w", cfg.TopicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %q does not exist", cfg.TopicID)
	}

	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	q := &Queue{
		client: client,
		topic:  topic,
		ch:     make(chan string, buffer),
		logger: logger,
	}
	if cfg.SubscriptionID != "" {
		q.sub = client.Subscription(cfg.SubscriptionID)
	}
	return q, nil
}

// Start begins receiving from the subscription, if one is configured,
// feeding keys to Dequeue until the context ends.
func (q *Queue) Start(ctx context.Context) {
	if q.sub == nil {
		return
	}
	recvCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	go func() {
		err := q.sub.Receive(recvCtx, func(_ context.Context, msg *pubsub.Message) {
			select {
			case q.ch <- string(msg.Data):
				msg.Ack()
			case <-recvCtx.Done():
				msg.Nack()
			}
		})
		if err != nil && recvCtx.Err() == nil {
			q.logger.Error("pubsub receive stopped", zap.Error(err))
		}
	}()
}

// Enqueue publishes the cache key and waits for the server's acknowledgment
// so publish failures surface to the caller.
func (q *Queue) Enqueue(ctx context.Context, key string) error {
	result := q.topic.Publish(ctx, &pubsub.Message{Data: []byte(key)})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish cache key: %w", err)
	}
	return nil
}

// Dequeue pops the next received cache key, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case key := <-q.ch:
		return key, nil
	}
}

// Close stops the receiver, flushes the publisher, and closes the client.
func (q *Queue) Close() error {
	if q.cancel != nil {
		q.cancel()
	}
	q.topic.Stop()
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
