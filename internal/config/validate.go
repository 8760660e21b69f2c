package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/rickgao/marketdash/internal/chart"
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	u, err := url.Parse(c.Feed.URL)
	if err != nil {
		return fmt.Errorf("feed.ws_url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("feed.ws_url must use ws or wss, got %q", c.Feed.URL)
	}

	if err := c.Connection.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}

	if c.Ingest.RateWindow < 1 {
		return errors.New("ingest.rate_window must be >= 1")
	}
	if c.Ingest.TradeLogSize < 1 {
		return errors.New("ingest.trade_log_size must be >= 1")
	}
	if c.Ingest.TradeThreshold < 0 {
		return errors.New("ingest.trade_threshold must be >= 0")
	}
	if c.Ingest.MessageLogSize < 1 {
		return errors.New("ingest.message_log_size must be >= 1")
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if c.Archive.Enabled {
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.BufferSize < c.Archive.BatchSize {
			return fmt.Errorf("archive.buffer_size (%d) must be >= batch_size (%d)", c.Archive.BufferSize, c.Archive.BatchSize)
		}
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level must be one of %v, got %q", validLogLevels, c.Log.Level)
	}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %v, got %q", validLogFormats, c.Log.Format)
	}

	return nil
}

func (cc *ConnectionConfig) validate() error {
	if cc.MaxAttempts < 0 {
		return errors.New("connection.max_attempts must be >= 0")
	}
	if cc.ReconnectBaseDelay <= 0 {
		return errors.New("connection.reconnect_base_delay must be positive")
	}
	if cc.ReconnectFactor < 1 {
		return fmt.Errorf("connection.reconnect_factor must be >= 1, got %v", cc.ReconnectFactor)
	}
	if cc.HeartbeatInterval <= 0 || cc.MetricsInterval <= 0 {
		return errors.New("connection.heartbeat_interval and metrics_interval must be positive")
	}
	if cc.PingTimeout < cc.PingInterval {
		return fmt.Errorf("connection.ping_timeout (%v) cannot be shorter than ping_interval (%v)", cc.PingTimeout, cc.PingInterval)
	}
	if cc.ChatRate < 0 || cc.ChatBurst < 0 {
		return errors.New("connection.chat_rate_per_sec and chat_burst must be >= 0")
	}
	return nil
}

func (mc *MarketConfig) validate() error {
	if mc.HistorySize < 1 {
		return errors.New("market.history_size must be >= 1")
	}
	for _, s := range mc.Symbols {
		if strings.TrimSpace(s) == "" {
			return errors.New("market.symbols cannot contain blank entries")
		}
	}
	if !slices.Contains(chart.Timeframes(), chart.Timeframe(mc.Timeframe)) {
		return fmt.Errorf("market.timeframe must be one of %v, got %q", chart.Timeframes(), mc.Timeframe)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
