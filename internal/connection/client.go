package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/marketdash/internal/model"
)

// EventSink receives the events of one open channel. Calls arrive from
// transport goroutines, in order, and must not block.
type EventSink interface {
	// Message delivers one inbound frame.
	Message(msg TimestampedMessage)

	// Closed reports that the channel ended without Close being called.
	// err is nil for a clean remote close.
	Closed(err error)
}

// Channel is an open bidirectional connection to the feed.
type Channel interface {
	// Listen starts delivering events to sink. Called once, after the
	// open has been handled, so no frame can overtake it.
	Listen(sink EventSink)

	// Send writes one text frame, bounded by the write timeout.
	Send(data []byte) error

	// Close closes the channel. No events are delivered afterwards.
	Close() error
}

// Dialer opens channels.
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// WSDialer opens gorilla/websocket channels.
type WSDialer struct {
	cfg    ClientConfig
	logger *slog.Logger
}

// NewDialer creates a WebSocket dialer.
func NewDialer(cfg ClientConfig, logger *slog.Logger) *WSDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSDialer{cfg: cfg, logger: logger}
}

// Dial performs the opening handshake.
func (d *WSDialer) Dial(ctx context.Context) (Channel, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if d.cfg.UserAgent != "" {
		header.Set("User-Agent", d.cfg.UserAgent)
	}
	if d.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+d.cfg.Token)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.cfg.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, d.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial %s: %s: %w", model.ErrTransport, d.cfg.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("%w: dial %s: %w", model.ErrTransport, d.cfg.URL, err)
	}

	c := &wsChannel{
		cfg:        d.cfg,
		logger:     d.logger,
		conn:       conn,
		done:       make(chan struct{}),
		lastPongAt: time.Now(),
	}

	// Server pings are answered with a pong; either direction counts as liveness.
	conn.SetPingHandler(func(data string) error {
		c.touch()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	d.logger.Debug("websocket connected", "url", d.cfg.URL)
	return c, nil
}

// wsChannel implements Channel over a gorilla connection.
type wsChannel struct {
	cfg    ClientConfig
	logger *slog.Logger
	conn   *websocket.Conn

	// Write serialization (frames and control pings)
	writeMu sync.Mutex

	mu         sync.Mutex
	lastPongAt time.Time

	done       chan struct{}
	closeOnce  sync.Once
	listenOnce sync.Once
	reportOnce sync.Once
}

func (c *wsChannel) touch() {
	c.mu.Lock()
	c.lastPongAt = time.Now()
	c.mu.Unlock()
}

func (c *wsChannel) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Listen starts the read and keepalive goroutines.
func (c *wsChannel) Listen(sink EventSink) {
	c.listenOnce.Do(func() {
		go c.readLoop(sink)
		if c.cfg.PingInterval > 0 {
			go c.keepaliveLoop(sink)
		}
	})
}

// report delivers the terminal event once, unless Close was called.
func (c *wsChannel) report(sink EventSink, err error) {
	if c.closing() {
		return
	}
	c.reportOnce.Do(func() { sink.Closed(err) })
}

// Send writes one text frame.
func (c *wsChannel) Send(data []byte) error {
	if c.closing() {
		return fmt.Errorf("%w: %w", model.ErrTransport, ErrAlreadyClosed)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: write: %w", model.ErrTransport, err)
	}
	return nil
}

// Close sends a close frame and closes the socket.
func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}

// readLoop delivers frames until the socket fails or is closed.
func (c *wsChannel) readLoop(sink EventSink) {
	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket closed by server", "error", err)
				c.report(sink, nil)
			} else {
				c.report(sink, fmt.Errorf("%w: read: %w", model.ErrTransport, err))
			}
			return
		}
		if c.closing() {
			return
		}

		sink.Message(TimestampedMessage{
			Data:       data,
			ReceivedAt: receivedAt,
		})
	}
}

// keepaliveLoop pings the server and detects stale channels.
func (c *wsChannel) keepaliveLoop(sink EventSink) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			deadline := time.Now().Add(max(c.cfg.WriteTimeout, time.Second))
			err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.Lock()
			lastPong := c.lastPongAt
			c.mu.Unlock()

			if c.cfg.PingTimeout > 0 && time.Since(lastPong) > c.cfg.PingTimeout {
				c.logger.Warn("no pong received, connection stale",
					"last_pong", lastPong,
					"timeout", c.cfg.PingTimeout,
				)
				c.report(sink, ErrStaleConnection)
				// Unblocks the read loop; its error is swallowed by reportOnce.
				c.conn.Close()
				return
			}
		}
	}
}
