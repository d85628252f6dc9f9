package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audiofetch/internal/config"
	"audiofetch/internal/extractor"
	"audiofetch/internal/handlers"
	"audiofetch/internal/registry"
	"audiofetch/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("AUDIOFETCH_CONFIG"))
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		logger.Error("failed to create download dir", "dir", cfg.DownloadDir, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	installCtx, installCancel := context.WithTimeout(ctx, 2*time.Minute)
	if err := extractor.EnsureInstalled(installCtx); err != nil {
		logger.Warn("could not resolve yt-dlp binary, relying on PATH", "error", err)
	}
	installCancel()

	store := registry.NewMemory()
	client := extractor.NewService(logger, cfg.CookiesFile)

	pool := worker.NewPool(logger, store, client, cfg.Workers, cfg.QueueSize, cfg.JobTimeout())
	pool.Start(ctx)

	app := handlers.NewApp(logger, store, pool, client, cfg.DownloadDir, cfg.PollInterval(), cfg.StreamCeiling())
	app.StartCleanupLoop(ctx, cfg.CleanupInterval(), cfg.CleanupAge())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// No WriteTimeout: progress streams stay open up to the safety ceiling.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("server started", "addr", cfg.Addr, "download_dir", cfg.DownloadDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = srv.Close()
	}
	pool.Wait()
	logger.Info("server stopped")
}
