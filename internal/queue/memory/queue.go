// Package memory provides a queue implementation for local development.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bracekit/linkextract/internal/metrics"
)

// Queue is a bounded in-memory queue of cache keys with context-aware
// operations.
type Queue struct {
	ch      chan string
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan string, capacity),
	}
}

// Enqueue pushes a cache key into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- key:
		metrics.SetQueueDepth(len(q.ch))
		return nil
	}
}

// Dequeue pops the next cache key, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case key, ok := <-q.ch:
		if !ok {
			return "", errors.New("queue closed")
		}
		metrics.SetQueueDepth(len(q.ch))
		return key, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
