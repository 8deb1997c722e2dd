// Command linkextract runs the link preview extraction server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/bracekit/linkextract/internal/api"
	"github.com/bracekit/linkextract/internal/clock/system"
	"github.com/bracekit/linkextract/internal/config"
	"github.com/bracekit/linkextract/internal/extract"
	uuidgen "github.com/bracekit/linkextract/internal/id/uuid"
	"github.com/bracekit/linkextract/internal/logging"
	"github.com/bracekit/linkextract/internal/metrics"
	memqueue "github.com/bracekit/linkextract/internal/queue/memory"
	psqueue "github.com/bracekit/linkextract/internal/queue/pubsub"
	"github.com/bracekit/linkextract/internal/renderer/headless"
	"github.com/bracekit/linkextract/internal/renderer/static"
	gcsblob "github.com/bracekit/linkextract/internal/storage/gcs"
	memblob "github.com/bracekit/linkextract/internal/storage/memory"
	memstore "github.com/bracekit/linkextract/internal/store/memory"
	pgstore "github.com/bracekit/linkextract/internal/store/postgres"
	"github.com/bracekit/linkextract/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "linkextract: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	store, closeStore, err := buildResultStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	queue, closeQueue, err := buildQueue(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeQueue()

	extractor, closeExtractor, err := buildExtractor(cfg, logger)
	if err != nil {
		return err
	}
	defer closeExtractor()

	ids := uuidgen.New()
	svc := extract.NewService(
		store, blobs, extract.DefaultOverrides, extractor, queue, system.New(), ids, logger)

	if queue != nil {
		for i := 0; i < cfg.Extract.Workers; i++ {
			go worker.New(queue, svc, logger).Run(ctx)
		}
		logger.Info("completion workers started", zap.Int("count", cfg.Extract.Workers))
	}

	server := api.NewServer(svc, cfg, ids, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func buildResultStore(ctx context.Context, cfg config.Config) (extract.ResultStore, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		store, err := pgstore.NewResultStore(ctx, pgstore.ResultStoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres result store: %w", err)
		}
		return store, store.Close, nil
	case "memory":
		return memstore.NewResultStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config) (extract.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		blobs, err := gcsblob.New(ctx, client, gcsblob.Config{
			Bucket: cfg.Storage.GCSBucket,
			Prefix: cfg.Storage.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("init gcs blob store: %w", err)
		}
		return blobs, nil
	case "memory":
		return memblob.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
}

func buildQueue(ctx context.Context, cfg config.Config, logger *zap.Logger) (extract.Queue, func(), error) {
	switch cfg.Queue.Provider {
	case "memory":
		q := memqueue.NewQueue(cfg.Queue.Depth)
		return q, q.Close, nil
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.Queue.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("init pubsub client: %w", err)
		}
		q, err := psqueue.New(ctx, client, psqueue.Config{
			TopicID:        cfg.Queue.TopicID,
			SubscriptionID: cfg.Queue.SubscriptionID,
			Buffer:         cfg.Queue.Depth,
		}, logger)
		if err != nil {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("close pubsub client", zap.Error(closeErr))
			}
			return nil, nil, fmt.Errorf("init pubsub queue: %w", err)
		}
		q.Start(ctx)
		closeFn := func() {
			if err := q.Close(); err != nil {
				logger.Warn("close pubsub queue", zap.Error(err))
			}
		}
		return q, closeFn, nil
	case "none":
		return nil, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue provider: %s", cfg.Queue.Provider)
	}
}

func buildExtractor(cfg config.Config, logger *zap.Logger) (extract.PageExtractor, func(), error) {
	switch cfg.Renderer.Provider {
	case "chromedp":
		r, err := headless.New(headless.Config{
			ViewportWidth:     cfg.Renderer.ViewportWidth,
			ViewportHeight:    cfg.Renderer.ViewportHeight,
			UserAgent:         cfg.Renderer.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
			IdleWindow:        cfg.IdleWindow(),
			MaxTabs:           cfg.Renderer.MaxTabs,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init headless renderer: %w", err)
		}
		return r, r.Close, nil
	case "static":
		r := static.New(static.Config{
			UserAgent:     cfg.Renderer.UserAgent,
			Timeout:       cfg.NavTimeout(),
			ViewportWidth: cfg.Renderer.ViewportWidth,
		})
		return r, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown renderer provider: %s", cfg.Renderer.Provider)
	}
}
