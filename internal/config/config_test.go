package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: desk-1
feed:
  ws_url: wss://feed.example.com/ws
connection:
  max_attempts: 8
  heartbeat_interval: 10s
market:
  symbols: [AAPL, NVDA]
  selected: NVDA
http:
  port: 9000
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "desk-1" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "desk-1")
	}
	if cfg.Feed.URL != "wss://feed.example.com/ws" {
		t.Errorf("Feed.URL = %q, want %q", cfg.Feed.URL, "wss://feed.example.com/ws")
	}
	if cfg.Connection.MaxAttempts != 8 {
		t.Errorf("Connection.MaxAttempts = %d, want 8", cfg.Connection.MaxAttempts)
	}
	if cfg.Connection.HeartbeatInterval != 10*time.Second {
		t.Errorf("Connection.HeartbeatInterval = %v, want 10s", cfg.Connection.HeartbeatInterval)
	}
	if !slices.Equal(cfg.Market.Symbols, []string{"AAPL", "NVDA"}) {
		t.Errorf("Market.Symbols = %v, want [AAPL NVDA]", cfg.Market.Symbols)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("HTTP.Port = %d, want 9000", cfg.HTTP.Port)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Feed.URL != "" {
		t.Errorf("Feed.URL = %q, want empty", cfg.Feed.URL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_FEED_TOKEN", "secret123")

	yaml := `
feed:
  ws_url: ws://localhost:8080/ws
  token: ${TEST_FEED_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Feed.Token != "secret123" {
		t.Errorf("Feed.Token = %q, want %q", cfg.Feed.Token, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "instance:\n  id: desk-1\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Feed.URL != DefaultFeedURL {
		t.Errorf("Feed.URL = %q, want default %q", cfg.Feed.URL, DefaultFeedURL)
	}
	if cfg.Connection.ReconnectBaseDelay != DefaultReconnectBaseDelay {
		t.Errorf("ReconnectBaseDelay = %v, want default %v", cfg.Connection.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	}
	if cfg.Connection.ReconnectFactor != DefaultReconnectFactor {
		t.Errorf("ReconnectFactor = %v, want default %v", cfg.Connection.ReconnectFactor, DefaultReconnectFactor)
	}
	if cfg.Market.Selected != DefaultSelected {
		t.Errorf("Market.Selected = %q, want default %q", cfg.Market.Selected, DefaultSelected)
	}
	if !slices.Equal(cfg.Market.Symbols, DefaultSymbols) {
		t.Errorf("Market.Symbols = %v, want default %v", cfg.Market.Symbols, DefaultSymbols)
	}
	if cfg.Ingest.TradeLogSize != DefaultTradeLogSize {
		t.Errorf("Ingest.TradeLogSize = %d, want default %d", cfg.Ingest.TradeLogSize, DefaultTradeLogSize)
	}
	if cfg.Archive.Database.Port != DefaultDBPort {
		t.Errorf("Archive.Database.Port = %d, want default %d", cfg.Archive.Database.Port, DefaultDBPort)
	}
	if cfg.HTTP.Port != DefaultHTTPPort {
		t.Errorf("HTTP.Port = %d, want default %d", cfg.HTTP.Port, DefaultHTTPPort)
	}

	// Defaults must not alias the package-level slice.
	cfg.Market.Symbols[0] = "XXX"
	if DefaultSymbols[0] != "TEST" {
		t.Error("applyDefaults aliased DefaultSymbols")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("DASH_FEED_URL", "ws://override:1234/ws")
	t.Setenv("DASH_HTTP_PORT", "7000")
	t.Setenv("DASH_SYMBOLS", "IBM,ORCL")
	t.Setenv("DASH_HEARTBEAT_INTERVAL", "45s")
	t.Setenv("DASH_ARCHIVE_DB_PASSWORD", "pw")

	yaml := `
feed:
  ws_url: ws://file:8080/ws
http:
  port: 9000
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Feed.URL != "ws://override:1234/ws" {
		t.Errorf("Feed.URL = %q, want env override", cfg.Feed.URL)
	}
	if cfg.HTTP.Port != 7000 {
		t.Errorf("HTTP.Port = %d, want 7000", cfg.HTTP.Port)
	}
	if !slices.Equal(cfg.Market.Symbols, []string{"IBM", "ORCL"}) {
		t.Errorf("Market.Symbols = %v, want [IBM ORCL]", cfg.Market.Symbols)
	}
	if cfg.Connection.HeartbeatInterval != 45*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 45s", cfg.Connection.HeartbeatInterval)
	}
	if cfg.Archive.Database.Password != "pw" {
		t.Errorf("Archive.Database.Password = %q, want pw", cfg.Archive.Database.Password)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DASH_TEST_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("DASH_TEST_DOTENV") })

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("DASH_TEST_DOTENV"); got != "from-file" {
		t.Errorf("DASH_TEST_DOTENV = %q, want from-file", got)
	}
}

func validConfig() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "missing instance id",
			mutate:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "http scheme",
			mutate:  func(c *Config) { c.Feed.URL = "http://localhost:8080/ws" },
			wantErr: "feed.ws_url must use ws or wss",
		},
		{
			name:    "factor below one",
			mutate:  func(c *Config) { c.Connection.ReconnectFactor = 0.5 },
			wantErr: "connection.reconnect_factor must be >= 1",
		},
		{
			name:    "ping timeout shorter than interval",
			mutate:  func(c *Config) { c.Connection.PingTimeout = time.Second },
			wantErr: "connection.ping_timeout",
		},
		{
			name:    "unknown timeframe",
			mutate:  func(c *Config) { c.Market.Timeframe = "2m" },
			wantErr: "market.timeframe must be one of",
		},
		{
			name:    "blank symbol",
			mutate:  func(c *Config) { c.Market.Symbols = []string{"AAPL", " "} },
			wantErr: "market.symbols cannot contain blank entries",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.HTTP.Port = 70000 },
			wantErr: "http.port must be between 1 and 65535",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log.format must be one of",
		},
		{
			name:   "archive disabled ignores database",
			mutate: func(c *Config) { c.Archive.Database = DBConfig{} },
		},
		{
			name:    "archive enabled needs host",
			mutate:  func(c *Config) { c.Archive.Enabled = true },
			wantErr: "archive.database.host is required",
		},
		{
			name: "archive min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 2, MinConns: 5}
			},
			wantErr: "archive.database.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name: "archive buffer smaller than batch",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 2}
				c.Archive.BufferSize = 10
			},
			wantErr: "archive.buffer_size (10) must be >= batch_size (500)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				return
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
