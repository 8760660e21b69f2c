// dashctl drives a running dashboard over its REST API.
// Usage: go run ./cmd/dashctl [-addr URL] [-token TOKEN] <command> [args]
//
// Commands:
//
//	health                    server build info
//	status                    connection and selection summary
//	symbols                   all tracked symbols
//	symbol SYM                one symbol
//	add SYM | remove SYM      edit the symbol set
//	select SYM                change the selected symbol
//	timeframe TAG             set the chart timeframe (1s, 5s, 30s, 1m)
//	chart [TAG]               selected symbol's chart series
//	stats [SYM]               statistics panel
//	trades | clear-trades     trade log
//	messages                  system message log
//	metrics | request-metrics server performance metrics
//	connect | disconnect | reconnect
//	submit TEXT...            chat input, including /commands
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/marketdash/internal/api"
)

func main() {
	addr := flag.String("addr", envOr("DASH_API_URL", "http://localhost:8090"), "dashboard API base URL")
	token := flag.String("token", os.Getenv("DASH_HTTP_AUTH_TOKEN"), "bearer token")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: dashctl [flags] <command> [args]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := api.NewClient(*addr, *token, api.WithTimeout(*timeout))
	out, err := run(ctx, client, flag.Arg(0), flag.Args()[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "dashctl:", err)
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			os.Exit(1)
		}
		os.Exit(3)
	}
	if out != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
	}
}

var errUsage = errors.New("bad arguments")

// run executes one command and returns what should be printed.
func run(ctx context.Context, c *api.Client, cmd string, args []string) (any, error) {
	arg := func(i int) (string, error) {
		if i >= len(args) {
			return "", fmt.Errorf("%s: %w", cmd, errUsage)
		}
		return args[i], nil
	}
	optional := func() string {
		if len(args) > 0 {
			return args[0]
		}
		return ""
	}

	switch cmd {
	case "health":
		return c.Health(ctx)
	case "status":
		return c.Status(ctx)
	case "symbols":
		return c.Symbols(ctx)
	case "symbol":
		sym, err := arg(0)
		if err != nil {
			return nil, err
		}
		return c.Symbol(ctx, sym)
	case "add":
		sym, err := arg(0)
		if err != nil {
			return nil, err
		}
		return c.AddSymbol(ctx, sym)
	case "remove":
		sym, err := arg(0)
		if err != nil {
			return nil, err
		}
		return nil, c.RemoveSymbol(ctx, sym)
	case "select":
		sym, err := arg(0)
		if err != nil {
			return nil, err
		}
		return nil, c.Select(ctx, sym)
	case "timeframe":
		tag, err := arg(0)
		if err != nil {
			return nil, err
		}
		return nil, c.SetTimeframe(ctx, tag)
	case "chart":
		return c.Chart(ctx, optional())
	case "stats":
		return c.Stats(ctx, optional())
	case "trades":
		return c.Trades(ctx)
	case "clear-trades":
		return nil, c.ClearTrades(ctx)
	case "messages":
		return c.Messages(ctx)
	case "metrics":
		return c.ServerMetrics(ctx)
	case "request-metrics":
		return nil, c.RequestMetrics(ctx)
	case "connect", "disconnect", "reconnect":
		return nil, c.Connection(ctx, cmd)
	case "submit":
		if len(args) == 0 {
			return nil, fmt.Errorf("%s: %w", cmd, errUsage)
		}
		return nil, c.Submit(ctx, strings.Join(args, " "))
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
