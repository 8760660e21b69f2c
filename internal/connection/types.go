package connection

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/marketdash/internal/model"
)

// Errors
var (
	ErrNotConnected    = fmt.Errorf("%w: not connected", model.ErrPolicy)
	ErrThrottled       = fmt.Errorf("%w: outbound rate limit exceeded", model.ErrPolicy)
	ErrStaleConnection = fmt.Errorf("%w: connection stale (no pong)", model.ErrTransport)
	ErrAlreadyClosed   = errors.New("already closed")
)

// State is the connection state machine position.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateDisconnected; st <= StateReconnecting; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", text)
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Session identifies one open channel. It is generated client-side.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

func newSession(now time.Time) Session {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return Session{
		ID:        "CONN-" + id[:9],
		StartedAt: now,
	}
}

// Status is a snapshot of the manager.
type Status struct {
	State       State     `json:"state"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	Exhausted   bool      `json:"exhausted"`
	Session     *Session  `json:"session,omitempty"`
	Since       time.Time `json:"since"` // Last state change
}

// ClientConfig configures the WebSocket transport.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:8080/ws)
	Token            string        // Optional bearer token
	UserAgent        string        // Sent on the handshake
	HandshakeTimeout time.Duration // Max time for the opening handshake
	WriteTimeout     time.Duration // Write deadline for sends
	PingInterval     time.Duration // WebSocket-level ping period (0 = disabled)
	PingTimeout      time.Duration // Max time without pong before the channel is stale
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      60 * time.Second,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	MaxAttempts         int           // Automatic reconnects before giving up
	Backoff             Policy        // Reconnect delay
	DialTimeout         time.Duration // Bound on one open attempt
	HeartbeatInterval   time.Duration // Keep-alive frame period
	MetricsInterval     time.Duration // get_metrics poll period
	InitialMetricsDelay time.Duration // One-shot get_metrics after open
	UserRate            float64       // User-originated frames per second (0 = unlimited)
	UserBurst           int
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxAttempts:         5,
		Backoff:             DefaultPolicy(),
		DialTimeout:         15 * time.Second,
		HeartbeatInterval:   30 * time.Second,
		MetricsInterval:     5 * time.Second,
		InitialMetricsDelay: time.Second,
		UserRate:            5,
		UserBurst:           10,
	}
}
