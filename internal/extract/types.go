// Package extract implements the link-preview extraction pipeline: URL
// normalization, the manual override table, the per-URL orchestration state
// machine, and the ordered batch coordinator.
package extract

import (
	"context"
	"errors"
	"time"
)

// Status is the terminal state of an extraction attempt. Every stored or
// synthesized ExtractedResult carries exactly one of these values.
type Status string

const (
	// StatusInit marks a placeholder record: extraction was requested but has
	// not completed yet.
	StatusInit Status = "INIT"
	// StatusOK marks a completed extraction with title and image populated.
	StatusOK Status = "OK"
	// StatusError marks a failed render, upload, or placeholder write.
	StatusError Status = "ERROR"
	// StatusInvalidURL marks input that failed URL validation.
	StatusInvalidURL Status = "INVALID_URL"
	// StatusExceedingLimit marks batch entries beyond the per-request cap.
	StatusExceedingLimit Status = "EXCEEDING_LIMIT"
)

// ExtractedResult is the unit of work and of storage. Title, Image and
// Favicon are only set when Status is StatusOK (or supplied by a manual
// override); they are omitted from JSON otherwise.
type ExtractedResult struct {
	URL         string `json:"url"`
	Status      Status `json:"status"`
	Title       string `json:"title,omitempty"`
	Image       string `json:"image,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
	ExtractedDT int64  `json:"extractedDT"`
}

// PageContent is what a page extractor pulls out of a rendered page: the
// chosen title and the raw bytes of the preview image (either a qualifying
// inline image or a page screenshot).
type PageContent struct {
	Title string
	Image []byte
}

// ErrRendererUnavailable indicates no page extractor is configured; callers
// running in deferred mode never hit the live path, so they never see it.
var ErrRendererUnavailable = errors.New("renderer unavailable")

// ResultStore is the persistent mapping from cache key to ExtractedResult.
// Get reports absence via the bool, not an error. Put is an upsert with
// last-writer-wins semantics.
type ResultStore interface {
	Get(ctx context.Context, key string) (ExtractedResult, bool, error)
	Put(ctx context.Context, key string, result ExtractedResult) error
}

// BlobStore uploads preview image bytes and returns a publicly fetchable URL.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// PageExtractor renders a URL and applies the content heuristics against the
// live page. Errors cover navigation timeouts, DNS failures, and renderer
// crashes; they are never retried here.
type PageExtractor interface {
	RenderAndExtract(ctx context.Context, url string) (PageContent, error)
}

// Queue carries cache keys of freshly initialised placeholder records to the
// background completion workers.
type Queue interface {
	Enqueue(ctx context.Context, key string) error
	Dequeue(ctx context.Context) (string, error)
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique names for blob objects and request log keys.
type IDGenerator interface {
	NewID() (string, error)
}
