package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObserversAreSafeWithoutInit(t *testing.T) {
	// Must not panic before Init.
	ObserveResult("OK")
	ObserveRender(true, time.Second)
	ObserveStoreError("put")
	ObserveHTTPRequest("POST", "/extract", 200, time.Millisecond)
	SetQueueDepth(3)
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	assert.NotNil(t, Handler())

	ObserveResult("OK")
	ObserveRender(false, time.Second)
	ObserveStoreError("get")
	ObserveHTTPRequest("POST", "/extract", 500, time.Millisecond)
	SetQueueDepth(0)
}
