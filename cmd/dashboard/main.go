// dashboard connects to a market data feed over WebSocket and serves the
// live dashboard state over HTTP.
// Usage: go run ./cmd/dashboard --config configs/dashboard.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/marketdash/internal/api"
	"github.com/rickgao/marketdash/internal/config"
	"github.com/rickgao/marketdash/internal/connection"
	"github.com/rickgao/marketdash/internal/dashboard"
	"github.com/rickgao/marketdash/internal/database"
	"github.com/rickgao/marketdash/internal/metrics"
	"github.com/rickgao/marketdash/internal/sched"
	"github.com/rickgao/marketdash/internal/version"
	"github.com/rickgao/marketdash/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the config")
	noConnect := flag.Bool("no-connect", false, "start disconnected")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, "load env file:", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting dashboard",
		"version", version.String(),
		"instance_id", cfg.Instance.ID,
		"feed", cfg.Feed.URL,
	)

	if err := run(cfg, logger, !*noConnect); err != nil {
		logger.Error("dashboard failed", "error", err)
		os.Exit(1)
	}
	logger.Info("dashboard stopped")
}

func run(cfg *config.Config, logger *slog.Logger, autoConnect bool) error {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mx := metrics.New(reg)

	loop := sched.NewLoop(256, logger)
	dialer := connection.NewDialer(clientConfig(cfg), logger)

	opts := []dashboard.Option{
		dashboard.WithLogger(logger),
		dashboard.WithMetrics(mx),
	}

	// Optional tick archive
	var archive *writer.TickWriter
	if cfg.Archive.Enabled {
		db := cfg.Archive.Database
		logger.Info("connecting to archive database",
			"host", db.Host,
			"port", db.Port,
			"database", db.Name,
		)

		pool, err := database.Connect(ctx, db, "marketdash "+cfg.Instance.ID)
		if err != nil {
			return fmt.Errorf("connect archive: %w", err)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		archive = writer.NewTickWriter(writerConfig(cfg.Archive), pool, logger, mx)
		if err := archive.Start(context.Background()); err != nil {
			return fmt.Errorf("start tick writer: %w", err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			archive.Stop(stopCtx)
		}()
		opts = append(opts, dashboard.WithTickSink(archive))
	}

	dash := dashboard.New(dashboardConfig(cfg), loop, dialer, opts...)

	handler := api.NewServer(dash, logger,
		api.WithGatherer(reg),
		api.WithRequestTimeout(cfg.HTTP.RequestTimeout),
		api.WithAuthToken(cfg.HTTP.AuthToken),
	)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The loop outlives ctx so the shutdown path can still disconnect.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := loop.Run(loopCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		logger.Info("starting http server", "port", cfg.HTTP.Port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if autoConnect {
		g.Go(func() error {
			if err := dash.Connect(gctx); err != nil && gctx.Err() == nil {
				logger.Warn("initial connect failed", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		if err := dash.Disconnect(shutdownCtx); err != nil {
			logger.Warn("disconnect", "error", err)
		}
		stopLoop()
		return nil
	})

	logger.Info("dashboard running",
		"api_url", fmt.Sprintf("http://localhost:%d/status", cfg.HTTP.Port),
		"archive", cfg.Archive.Enabled,
	)

	return g.Wait()
}
