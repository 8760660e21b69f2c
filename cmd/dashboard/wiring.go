package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/rickgao/marketdash/internal/chart"
	"github.com/rickgao/marketdash/internal/config"
	"github.com/rickgao/marketdash/internal/connection"
	"github.com/rickgao/marketdash/internal/dashboard"
	"github.com/rickgao/marketdash/internal/ingest"
	"github.com/rickgao/marketdash/internal/market"
	"github.com/rickgao/marketdash/internal/version"
	"github.com/rickgao/marketdash/internal/writer"
)

// newLogger builds the slog handler selected by log.level and log.format.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func clientConfig(cfg *config.Config) connection.ClientConfig {
	cc := cfg.Connection
	return connection.ClientConfig{
		URL:              cfg.Feed.URL,
		Token:            cfg.Feed.Token,
		UserAgent:        version.UserAgent(),
		HandshakeTimeout: cc.HandshakeTimeout,
		WriteTimeout:     cc.WriteTimeout,
		PingInterval:     cc.PingInterval,
		PingTimeout:      cc.PingTimeout,
	}
}

func managerConfig(cc config.ConnectionConfig) connection.ManagerConfig {
	return connection.ManagerConfig{
		MaxAttempts: cc.MaxAttempts,
		Backoff: connection.Policy{
			Base:   cc.ReconnectBaseDelay,
			Factor: cc.ReconnectFactor,
		},
		DialTimeout:         cc.DialTimeout,
		HeartbeatInterval:   cc.HeartbeatInterval,
		MetricsInterval:     cc.MetricsInterval,
		InitialMetricsDelay: cc.InitialMetricsDelay,
		UserRate:            cc.ChatRate,
		UserBurst:           cc.ChatBurst,
	}
}

func dashboardConfig(cfg *config.Config) dashboard.Config {
	ing := ingest.DefaultConfig()
	ing.RateWindow = cfg.Ingest.RateWindow
	ing.TradeLogSize = cfg.Ingest.TradeLogSize
	ing.TradeThreshold = cfg.Ingest.TradeThreshold

	return dashboard.Config{
		Market: market.Config{
			HistorySize:     cfg.Market.HistorySize,
			ZeroMeansAbsent: !cfg.Market.ZeroIsValue,
			Symbols:         cfg.Market.Symbols,
			Selected:        cfg.Market.Selected,
		},
		Ingest:          ing,
		Connection:      managerConfig(cfg.Connection),
		Timeframe:       chart.Timeframe(cfg.Market.Timeframe),
		BytesPerMessage: cfg.Ingest.BytesPerMessage,
		MessageLogSize:  cfg.Ingest.MessageLogSize,
	}
}

func writerConfig(ac config.ArchiveConfig) writer.Config {
	return writer.Config{
		BatchSize:     ac.BatchSize,
		FlushInterval: ac.FlushInterval,
		BufferSize:    ac.BufferSize,
	}
}
