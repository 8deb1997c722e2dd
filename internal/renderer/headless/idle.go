package headless

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// idleTracker watches network events on a tab and reports when no request
// has been in flight for a trailing quiet window.
type idleTracker struct {
	window time.Duration

	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	last     time.Time
}

func newIdleTracker(window time.Duration) *idleTracker {
	return &idleTracker{
		window:   window,
		inflight: make(map[network.RequestID]struct{}),
		last:     time.Now(),
	}
}

func (t *idleTracker) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.mu.Lock()
		t.inflight[e.RequestID] = struct{}{}
		t.last = time.Now()
		t.mu.Unlock()
	case *network.EventLoadingFinished:
		t.finish(e.RequestID)
	case *network.EventLoadingFailed:
		t.finish(e.RequestID)
	}
}

func (t *idleTracker) finish(id network.RequestID) {
	t.mu.Lock()
	delete(t.inflight, id)
	t.last = time.Now()
	t.mu.Unlock()
}

func (t *idleTracker) isIdle(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && now.Sub(t.last) >= t.window
}

// waitAction blocks until the tab has been network-idle for the configured
// window, or the task context expires.
func (t *idleTracker) waitAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return fmt.Errorf("wait network idle: %w", ctx.Err())
			case now := <-ticker.C:
				if t.isIdle(now) {
					return nil
				}
			}
		}
	})
}
