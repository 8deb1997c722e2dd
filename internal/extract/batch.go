package extract

import (
	"context"
	"sync"
)

// Mode selects how the batch coordinator handles a cache miss.
type Mode string

const (
	// ModeLive renders pages synchronously within the request.
	ModeLive Mode = "live"
	// ModeDeferred writes INIT placeholders and lets background workers
	// complete them.
	ModeDeferred Mode = "deferred"
)

// ExtractBatch fans a request's URL list out to the orchestrator with a hard
// cap of limit concurrent tasks. The first min(len(urls), limit) entries are
// dispatched concurrently and joined; entries beyond the cap are never
// dispatched and come back as EXCEEDING_LIMIT with the original URL. Output
// order mirrors input order regardless of completion order.
func (s *Service) ExtractBatch(ctx context.Context, logKey string, urls []string, limit int, mode Mode) []ExtractedResult {
	results := make([]ExtractedResult, len(urls))

	dispatch := len(urls)
	if limit >= 0 && dispatch > limit {
		dispatch = limit
	}

	var wg sync.WaitGroup
	for i := 0; i < dispatch; i++ {
		wg.Add(1)
		go func(seq int, rawURL string) {
			defer wg.Done()
			// Index-based placement keeps the input-order invariant.
			if mode == ModeDeferred {
				results[seq] = s.GetOrInit(ctx, logKey, seq, rawURL)
			} else {
				results[seq] = s.Extract(ctx, logKey, seq, rawURL)
			}
		}(i, urls[i])
	}
	wg.Wait()

	for i := dispatch; i < len(urls); i++ {
		results[i] = ExtractedResult{
			URL:         urls[i],
			Status:      StatusExceedingLimit,
			ExtractedDT: s.clock.Now().UnixMilli(),
		}
	}
	return results
}

// PreExtractBatch runs the lazy lookup chain for each URL under the same cap
// and ordering rules, discarding the per-URL results: it only guarantees
// that a record (INIT or resolved) now exists for each valid key.
func (s *Service) PreExtractBatch(ctx context.Context, logKey string, urls []string, limit int) {
	s.ExtractBatch(ctx, logKey, urls, limit, ModeDeferred)
}
