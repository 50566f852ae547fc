package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskdesk/internal/adapter/completion"
	"taskdesk/internal/blob"
	"taskdesk/internal/config"
	"taskdesk/internal/feed"
	"taskdesk/internal/observability"
	"taskdesk/internal/policy"
	"taskdesk/internal/service"
	"taskdesk/internal/store"
	transporthttp "taskdesk/internal/transport/http"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting taskdesk",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("database", cfg.DatabaseURL),
		zap.String("completion_base_url", cfg.CompletionBaseURL))

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to initialize store", zap.Error(err))
	}
	defer db.Close()

	completionClient := completion.NewHTTPClient(cfg.CompletionBaseURL, cfg.CompletionAPIKey, cfg.CompletionTimeout)

	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatal("failed to initialize policy engine", zap.Error(err))
	}

	blobStore, err := blob.NewStore(cfg.BlobDir, cfg.FilesPrefix)
	if err != nil {
		log.Fatal("failed to initialize blob store", zap.Error(err))
	}

	hub := feed.NewHub(log)
	go hub.Run()

	svc := service.New(db, completionClient, policyEngine, hub, blobStore, cfg, log)

	server := transporthttp.NewServer(svc, hub, cfg.FilesPrefix, cfg.BlobDir)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-gctx.Done():
			return gctx.Err()
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatal("taskdesk stopped with error", zap.Error(err))
	}
	log.Info("taskdesk stopped")
}
