// Package worker implements the background completion loop for pre-warmed
// placeholder records.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bracekit/linkextract/internal/extract"
)

// dequeueBackoff spaces out retries when the queue keeps failing, so a
// broken queue does not spin the loop.
const dequeueBackoff = time.Second

// Worker consumes cache keys from the completion queue and resolves their
// INIT placeholders through the live extraction pipeline.
type Worker struct {
	queue  extract.Queue
	svc    *extract.Service
	logger *zap.Logger
}

// New constructs a Worker.
func New(queue extract.Queue, svc *extract.Service, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:  queue,
		svc:    svc,
		logger: logger,
	}
}

// Run blocks, consuming queue items until the context finishes. A failed
// completion is logged and left as-is; the record keeps its persisted
// status and a later pre-extract may enqueue it again.
func (w *Worker) Run(ctx context.Context) {
	for {
		key, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(dequeueBackoff):
			}
			continue
		}
		w.logger.Debug("dequeued cache key", zap.String("key", key))
		if err := w.svc.CompleteInit(ctx, key); err != nil {
			w.logger.Warn("complete placeholder failed", zap.String("key", key), zap.Error(err))
		}
	}
}
