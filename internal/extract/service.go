package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bracekit/linkextract/internal/metrics"
)

// Service orchestrates the per-URL extraction pipeline:
// validate → normalize → override → cache lookup → live extraction or
// lazy INIT placeholder → persist.
type Service struct {
	store     ResultStore
	blobs     BlobStore
	overrides OverrideTable
	extractor PageExtractor
	queue     Queue
	clock     Clock
	ids       IDGenerator
	logger    *zap.Logger
}

// NewService wires the orchestrator. extractor may be nil when the service
// only runs in deferred (placeholder) mode; queue may be nil when no
// background completion is configured.
func NewService(
	store ResultStore,
	blobs BlobStore,
	overrides OverrideTable,
	extractor PageExtractor,
	queue Queue,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		blobs:     blobs,
		overrides: overrides,
		extractor: extractor,
		queue:     queue,
		clock:     clock,
		ids:       ids,
		logger:    logger,
	}
}

// resolution is the outcome of the shared lookup chain. When done is true
// the result is terminal and no live work is needed.
type resolution struct {
	result    ExtractedResult
	key       string
	canonical string
	done      bool
}

// resolve runs the tiers common to both deployment modes: validation, the
// manual override table, and the persistent store.
func (s *Service) resolve(ctx context.Context, logKey string, seq int, rawURL string) resolution {
	result := ExtractedResult{
		URL:         rawURL,
		ExtractedDT: s.clock.Now().UnixMilli(),
	}

	validation := Validate(rawURL)
	if validation != ValidURL {
		s.logger.Info("url failed validation",
			zap.String("log_key", logKey), zap.Int("seq", seq), zap.String("url", rawURL))
		result.Status = StatusInvalidURL
		return resolution{result: result, done: true}
	}

	cleaned := CleanURL(rawURL)
	key := CacheKey(cleaned)
	canonical := EnsureProtocol(cleaned)
	result.URL = canonical

	if manual, ok := s.overrides.Lookup(key, canonical); ok {
		s.logger.Info("found in manual overrides",
			zap.String("log_key", logKey), zap.Int("seq", seq), zap.String("key", key))
		return resolution{result: manual, key: key, canonical: canonical, done: true}
	}

	saved, found, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Error("result store get failed",
			zap.String("log_key", logKey), zap.Int("seq", seq), zap.String("key", key), zap.Error(err))
		metrics.ObserveStoreError("get")
		result.Status = StatusError
		return resolution{result: result, key: key, canonical: canonical, done: true}
	}
	if found {
		// Old records are removed by an external batch job; anything still
		// present in the store is valid as-is.
		s.logger.Info("found saved result",
			zap.String("log_key", logKey), zap.Int("seq", seq), zap.String("key", key))
		return resolution{result: saved, key: key, canonical: canonical, done: true}
	}

	return resolution{result: result, key: key, canonical: canonical}
}

// Extract runs the synchronous pipeline for one URL: on a cache miss the
// page is rendered live and the outcome persisted. Every failure is
// converted into a terminal result; Extract never returns an error.
func (s *Service) Extract(ctx context.Context, logKey string, seq int, rawURL string) ExtractedResult {
	res := s.resolve(ctx, logKey, seq, rawURL)
	if res.done {
		metrics.ObserveResult(string(res.result.Status))
		return res.result
	}
	out := s.extractLive(ctx, logKey, res.key, res.canonical)
	metrics.ObserveResult(string(out.Status))
	return out
}

// GetOrInit runs the lazy pipeline for one URL: on a cache miss an INIT
// placeholder is written and returned immediately without rendering. A
// failed placeholder write downgrades the returned status to ERROR but the
// request carries on. Fresh placeholders are handed to the completion queue
// when one is configured.
func (s *Service) GetOrInit(ctx context.Context, logKey string, seq int, rawURL string) ExtractedResult {
	res := s.resolve(ctx, logKey, seq, rawURL)
	if res.done {
		metrics.ObserveResult(string(res.result.Status))
		return res.result
	}

	result := res.result
	result.Status = StatusInit
	if err := s.store.Put(ctx, res.key, result); err != nil {
		s.logger.Error("initialise placeholder failed",
			zap.String("log_key", logKey), zap.String("key", res.key), zap.Error(err))
		metrics.ObserveStoreError("put")
		result.Status = StatusError
		metrics.ObserveResult(string(result.Status))
		return result
	}
	s.logger.Info("initialised extracted result",
		zap.String("log_key", logKey), zap.Int("seq", seq), zap.String("key", res.key))

	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, res.key); err != nil {
			// The placeholder is in place; a later pre-extract retries it.
			s.logger.Warn("enqueue completion failed",
				zap.String("log_key", logKey), zap.String("key", res.key), zap.Error(err))
		}
	}
	metrics.ObserveResult(string(result.Status))
	return result
}

// CompleteInit resolves a previously written INIT placeholder by running the
// live pipeline against its stored URL. Records already resolved, or gone
// from the store, are skipped.
func (s *Service) CompleteInit(ctx context.Context, key string) error {
	saved, found, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get placeholder %q: %w", key, err)
	}
	if !found || saved.Status != StatusInit {
		return nil
	}
	out := s.extractLive(ctx, "worker", key, saved.URL)
	if out.Status == StatusError {
		return fmt.Errorf("complete placeholder %q: extraction failed", key)
	}
	return nil
}

// extractLive renders the page, uploads the preview image, and persists the
// outcome under key. Persistence of a successful result is best-effort: the
// caller still receives the extracted content when the write fails.
func (s *Service) extractLive(ctx context.Context, logKey, key, canonical string) ExtractedResult {
	result := ExtractedResult{
		URL:         canonical,
		ExtractedDT: s.clock.Now().UnixMilli(),
	}

	if s.extractor == nil {
		s.logger.Error("no page extractor configured",
			zap.String("log_key", logKey), zap.Error(ErrRendererUnavailable))
		result.Status = StatusError
		s.persist(ctx, logKey, key, result)
		return result
	}

	start := s.clock.Now()
	content, err := s.extractor.RenderAndExtract(ctx, canonical)
	metrics.ObserveRender(err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn("render failed",
			zap.String("log_key", logKey), zap.String("url", canonical), zap.Error(err))
		result.Status = StatusError
		s.persist(ctx, logKey, key, result)
		return result
	}

	imageURL, err := s.uploadImage(ctx, content.Image)
	if err != nil {
		s.logger.Error("image upload failed",
			zap.String("log_key", logKey), zap.String("key", key), zap.Error(err))
		result.Status = StatusError
		s.persist(ctx, logKey, key, result)
		return result
	}

	result.Status = StatusOK
	result.Title = content.Title
	result.Image = imageURL
	s.persist(ctx, logKey, key, result)
	return result
}

func (s *Service) uploadImage(ctx context.Context, data []byte) (string, error) {
	name, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate object name: %w", err)
	}
	url, err := s.blobs.PutObject(ctx, name+".png", "image/png", data)
	if err != nil {
		return "", fmt.Errorf("put preview image: %w", err)
	}
	return url, nil
}

func (s *Service) persist(ctx context.Context, logKey, key string, result ExtractedResult) {
	if err := s.store.Put(ctx, key, result); err != nil {
		s.logger.Error("persist result failed",
			zap.String("log_key", logKey), zap.String("key", key), zap.Error(err))
		metrics.ObserveStoreError("put")
	}
}
