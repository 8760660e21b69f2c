// feedsim serves a simulated market data feed for local development.
// Usage: go run ./cmd/feedsim --addr :8080 --interval 500ms
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	interval := flag.Duration("interval", 500*time.Millisecond, "update period per symbol")
	symbols := flag.String("symbols", "TEST,AAPL,GOOGL,MSFT,AMZN,TSLA", "comma-separated symbols")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "random walk seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := newSimServer(strings.Split(*symbols, ","), *interval, *seed, logger)
	server := &http.Server{
		Addr:              *addr,
		Handler:           sim.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("feed simulator listening", "addr", *addr, "interval", *interval)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("feed simulator stopped")
}
