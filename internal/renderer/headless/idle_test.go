package headless

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
)

func TestIdleTracker(t *testing.T) {
	t.Parallel()

	tracker := newIdleTracker(100 * time.Millisecond)

	// Nothing in flight, but the quiet window has not elapsed yet.
	assert.False(t, tracker.isIdle(time.Now()))
	assert.True(t, tracker.isIdle(time.Now().Add(200*time.Millisecond)))

	tracker.handle(&network.EventRequestWillBeSent{RequestID: "req-1"})
	// An in-flight request blocks idleness no matter how much time passes.
	assert.False(t, tracker.isIdle(time.Now().Add(time.Hour)))

	tracker.handle(&network.EventLoadingFinished{RequestID: "req-1"})
	assert.False(t, tracker.isIdle(time.Now()))
	assert.True(t, tracker.isIdle(time.Now().Add(200*time.Millisecond)))
}

func TestIdleTrackerFailedRequestsCount(t *testing.T) {
	t.Parallel()

	tracker := newIdleTracker(50 * time.Millisecond)
	tracker.handle(&network.EventRequestWillBeSent{RequestID: "req-1"})
	tracker.handle(&network.EventRequestWillBeSent{RequestID: "req-2"})

	tracker.handle(&network.EventLoadingFailed{RequestID: "req-1"})
	assert.False(t, tracker.isIdle(time.Now().Add(time.Hour)))

	tracker.handle(&network.EventLoadingFinished{RequestID: "req-2"})
	assert.True(t, tracker.isIdle(time.Now().Add(100*time.Millisecond)))
}

func TestIdleTrackerIgnoresUnrelatedEvents(t *testing.T) {
	t.Parallel()

	tracker := newIdleTracker(50 * time.Millisecond)
	tracker.handle("not a network event")
	assert.True(t, tracker.isIdle(time.Now().Add(100*time.Millisecond)))
}
