package config

import "time"

// Config is the root configuration for a dashboard instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Feed       FeedConfig       `yaml:"feed"`
	Connection ConnectionConfig `yaml:"connection"`
	Market     MarketConfig     `yaml:"market"`
	Ingest     IngestConfig     `yaml:"ingest"`
	HTTP       HTTPConfig       `yaml:"http"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Log        LogConfig        `yaml:"log"`
}

// InstanceConfig identifies this dashboard.
type InstanceConfig struct {
	ID string `yaml:"id" env:"INSTANCE_ID"`
}

// FeedConfig points at the market data server.
type FeedConfig struct {
	URL   string `yaml:"ws_url" env:"FEED_URL"`
	Token string `yaml:"token" env:"FEED_TOKEN"` // Optional bearer token
}

// ConnectionConfig holds connection manager and transport settings.
type ConnectionConfig struct {
	MaxAttempts         int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	ReconnectBaseDelay  time.Duration `yaml:"reconnect_base_delay" env:"RECONNECT_BASE_DELAY"`
	ReconnectFactor     float64       `yaml:"reconnect_factor" env:"RECONNECT_FACTOR"`
	DialTimeout         time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL"`
	MetricsInterval     time.Duration `yaml:"metrics_interval" env:"METRICS_INTERVAL"`
	InitialMetricsDelay time.Duration `yaml:"initial_metrics_delay" env:"INITIAL_METRICS_DELAY"`
	HandshakeTimeout    time.Duration `yaml:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`
	WriteTimeout        time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	PingInterval        time.Duration `yaml:"ping_interval" env:"PING_INTERVAL"`
	PingTimeout         time.Duration `yaml:"ping_timeout" env:"PING_TIMEOUT"`
	ChatRate            float64       `yaml:"chat_rate_per_sec" env:"CHAT_RATE"`
	ChatBurst           int           `yaml:"chat_burst" env:"CHAT_BURST"`
}

// MarketConfig holds the symbol store settings.
type MarketConfig struct {
	Symbols     []string `yaml:"symbols" env:"SYMBOLS" envSeparator:","`
	Selected    string   `yaml:"selected" env:"SELECTED"`
	HistorySize int      `yaml:"history_size" env:"HISTORY_SIZE"`
	Timeframe   string   `yaml:"timeframe" env:"TIMEFRAME"`

	// ZeroIsValue stores an explicit 0 in an update instead of keeping the
	// previous value.
	ZeroIsValue bool `yaml:"zero_is_value" env:"ZERO_IS_VALUE"`
}

// IngestConfig holds ingest pipeline settings.
type IngestConfig struct {
	RateWindow      int     `yaml:"rate_window" env:"RATE_WINDOW"`
	TradeLogSize    int     `yaml:"trade_log_size" env:"TRADE_LOG_SIZE"`
	TradeThreshold  float64 `yaml:"trade_threshold" env:"TRADE_THRESHOLD"`
	BytesPerMessage int     `yaml:"assumed_bytes_per_message" env:"BYTES_PER_MESSAGE"`
	MessageLogSize  int     `yaml:"message_log_size" env:"MESSAGE_LOG_SIZE"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Port           int           `yaml:"port" env:"HTTP_PORT"`
	AuthToken      string        `yaml:"auth_token" env:"HTTP_AUTH_TOKEN"` // Empty disables auth
	RequestTimeout time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT"`
}

// ArchiveConfig holds the optional tick archive settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled" env:"ARCHIVE_ENABLED"`
	Database      DBConfig      `yaml:"database" envPrefix:"ARCHIVE_DB_"`
	BatchSize     int           `yaml:"batch_size" env:"ARCHIVE_BATCH_SIZE"`
	FlushInterval time.Duration `yaml:"flush_interval" env:"ARCHIVE_FLUSH_INTERVAL"`
	BufferSize    int           `yaml:"buffer_size" env:"ARCHIVE_BUFFER_SIZE"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Name     string `yaml:"name" env:"NAME"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxConns int    `yaml:"max_conns" env:"MAX_CONNS"`
	MinConns int    `yaml:"min_conns" env:"MIN_CONNS"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"LOG_FORMAT"` // text or json
}
