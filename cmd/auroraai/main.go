// Package main is the entry point for the AuroraAI server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auroraai/internal/adapter"
	"auroraai/internal/config"
	httpserver "auroraai/internal/http"
	"auroraai/internal/logsink"
	"auroraai/internal/orchestrator"
	"auroraai/internal/ratelimit"
	"auroraai/internal/telemetry"
	"auroraai/internal/tiers"
)

func main() {
	configPath := flag.String("config", "config.toml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(cfg.Telemetry.LogFormat, cfg.Telemetry.LogLevel)
	slog.SetDefault(logger)

	slog.Info("Starting AuroraAI",
		"version", "0.1.0",
		"http_port", cfg.Server.HTTPPort,
	)

	metrics := telemetry.NewMetrics()

	adapterRegistry, err := adapter.FromConfig(cfg)
	if err != nil {
		slog.Error("Failed to build adapter registry", "error", err)
		os.Exit(1)
	}
	slog.Info("Adapter registry ready", "adapters", len(adapterRegistry.All()))

	tierRegistry := tiers.NewRegistry(cfg)

	var logs httpserver.LogStore
	if cfg.Database.Driver == "postgres" {
		pgSink, err := logsink.NewPostgres(&cfg.Database, logger)
		if err != nil {
			slog.Error("Failed to initialize log database", "error", err)
			os.Exit(1)
		}
		defer pgSink.Close()
		logs = pgSink
		slog.Info("Using PostgreSQL log sink",
			"host", cfg.Database.Host,
			"database", cfg.Database.Database,
		)
	} else {
		logs = logsink.NewMemory()
		slog.Info("Using in-memory log sink")
	}

	limiter := ratelimit.New(tierRegistry, ratelimit.Settings{
		ViolationPenalty: cfg.RateLimit.ViolationPenalty,
		ExtendedPenalty:  cfg.RateLimit.ExtendedPenalty,
		MaxViolations:    cfg.RateLimit.MaxViolations,
	})

	engine := orchestrator.New(adapterRegistry, tierRegistry, orchestrator.Options{
		Threshold:      cfg.Orchestration.Threshold,
		MaxIterations:  cfg.Orchestration.MaxIterations,
		AdapterTimeout: cfg.Orchestration.AdapterTimeout,
	}, metrics, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Received shutdown signal", "signal", sig)
		cancel()
	}()

	// Evict idle limiter entries in the background
	go func() {
		interval := cfg.RateLimit.CleanupInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := limiter.Cleanup(); n > 0 {
					slog.Debug("Evicted idle limiter entries", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	server := httpserver.NewServer(cfg, engine, limiter, tierRegistry, adapterRegistry, logs, metrics, logger)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.HTTPPort),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("Starting HTTP server", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	slog.Info("Shutdown complete")
}
