package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID          = "marketdash"
	DefaultFeedURL             = "ws://localhost:8080/ws"
	DefaultMaxAttempts         = 5
	DefaultReconnectBaseDelay  = 3 * time.Second
	DefaultReconnectFactor     = 1.5
	DefaultDialTimeout         = 15 * time.Second
	DefaultHeartbeatInterval   = 30 * time.Second
	DefaultMetricsInterval     = 5 * time.Second
	DefaultInitialMetricsDelay = 1 * time.Second
	DefaultHandshakeTimeout    = 10 * time.Second
	DefaultWriteTimeout        = 5 * time.Second
	DefaultPingInterval        = 30 * time.Second
	DefaultPingTimeout         = 60 * time.Second
	DefaultChatRate            = 5
	DefaultChatBurst           = 10
	DefaultSelected            = "TEST"
	DefaultHistorySize         = 1000
	DefaultTimeframe           = "1s"
	DefaultRateWindow          = 60
	DefaultTradeLogSize        = 100
	DefaultTradeThreshold      = 0.01
	DefaultBytesPerMessage     = 100
	DefaultMessageLogSize      = 100
	DefaultHTTPPort            = 8090
	DefaultRequestTimeout      = 5 * time.Second
	DefaultDBPort              = 5432
	DefaultDBSSLMode           = "prefer"
	DefaultMaxConns            = 4
	DefaultMinConns            = 1
	DefaultBatchSize           = 500
	DefaultFlushInterval       = 1 * time.Second
	DefaultBufferSize          = 10000
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
)

// DefaultSymbols are tracked when the config names none.
var DefaultSymbols = []string{"TEST", "AAPL", "GOOGL", "MSFT", "AMZN", "TSLA"}

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}

	// Connection defaults
	if c.Connection.MaxAttempts == 0 {
		c.Connection.MaxAttempts = DefaultMaxAttempts
	}
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ReconnectFactor == 0 {
		c.Connection.ReconnectFactor = DefaultReconnectFactor
	}
	if c.Connection.DialTimeout == 0 {
		c.Connection.DialTimeout = DefaultDialTimeout
	}
	if c.Connection.HeartbeatInterval == 0 {
		c.Connection.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Connection.MetricsInterval == 0 {
		c.Connection.MetricsInterval = DefaultMetricsInterval
	}
	if c.Connection.InitialMetricsDelay == 0 {
		c.Connection.InitialMetricsDelay = DefaultInitialMetricsDelay
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.ChatRate == 0 {
		c.Connection.ChatRate = DefaultChatRate
	}
	if c.Connection.ChatBurst == 0 {
		c.Connection.ChatBurst = DefaultChatBurst
	}

	// Market defaults
	if len(c.Market.Symbols) == 0 {
		c.Market.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if c.Market.Selected == "" {
		c.Market.Selected = DefaultSelected
	}
	if c.Market.HistorySize == 0 {
		c.Market.HistorySize = DefaultHistorySize
	}
	if c.Market.Timeframe == "" {
		c.Market.Timeframe = DefaultTimeframe
	}

	// Ingest defaults
	if c.Ingest.RateWindow == 0 {
		c.Ingest.RateWindow = DefaultRateWindow
	}
	if c.Ingest.TradeLogSize == 0 {
		c.Ingest.TradeLogSize = DefaultTradeLogSize
	}
	if c.Ingest.TradeThreshold == 0 {
		c.Ingest.TradeThreshold = DefaultTradeThreshold
	}
	if c.Ingest.BytesPerMessage == 0 {
		c.Ingest.BytesPerMessage = DefaultBytesPerMessage
	}
	if c.Ingest.MessageLogSize == 0 {
		c.Ingest.MessageLogSize = DefaultMessageLogSize
	}

	// HTTP defaults
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = DefaultRequestTimeout
	}

	// Archive defaults
	applyDBDefaults(&c.Archive.Database)
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultBufferSize
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
