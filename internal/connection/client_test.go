package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/marketdash/internal/model"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// chanSink forwards channel events to Go channels.
type chanSink struct {
	msgs   chan TimestampedMessage
	closed chan error
}

func newChanSink() *chanSink {
	return &chanSink{
		msgs:   make(chan TimestampedMessage, 16),
		closed: make(chan error, 1),
	}
}

func (s *chanSink) Message(msg TimestampedMessage) { s.msgs <- msg }
func (s *chanSink) Closed(err error)               { s.closed <- err }

func drainReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func testClientConfig(server *httptest.Server) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.URL = wsURL(server)
	cfg.PingInterval = 0
	return cfg
}

func TestWSDialer_DialAndSend(t *testing.T) {
	received := make(chan string, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(data)
		drainReads(conn)
	})
	defer server.Close()

	ch, err := NewDialer(testClientConfig(server), nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer ch.Close()

	if err := ch.Send([]byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case got := <-received:
		if got != `{"type":"ping"}` {
			t.Errorf("server received %s, want ping frame", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
	}
}

func TestWSDialer_Headers(t *testing.T) {
	var auth, agent string
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		agent = r.Header.Get("User-Agent")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		drainReads(conn)
	}))
	defer server.Close()

	cfg := testClientConfig(server)
	cfg.Token = "secret"
	cfg.UserAgent = "marketdash/test"

	ch, err := NewDialer(cfg, nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	ch.Close()

	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer secret")
	}
	if agent != "marketdash/test" {
		t.Errorf("User-Agent = %q, want %q", agent, "marketdash/test")
	}
}

func TestWSDialer_DialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewDialer(testClientConfig(server), nil).Dial(context.Background())
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !errors.Is(err, model.ErrTransport) {
		t.Errorf("Dial() error = %v, want ErrTransport", err)
	}
}

func TestChannel_Messages(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
			conn.WriteMessage(websocket.TextMessage, []byte(msg))
		}
		drainReads(conn)
	})
	defer server.Close()

	ch, err := NewDialer(testClientConfig(server), nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer ch.Close()

	sink := newChanSink()
	ch.Listen(sink)

	for i, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		select {
		case msg := <-sink.msgs:
			if string(msg.Data) != want {
				t.Errorf("message %d = %s, want %s", i, msg.Data, want)
			}
			if msg.ReceivedAt.IsZero() {
				t.Errorf("message %d has zero ReceivedAt", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for message %d", i)
		}
	}
}

func TestChannel_RemoteNormalClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second),
		)
		drainReads(conn)
	})
	defer server.Close()

	ch, err := NewDialer(testClientConfig(server), nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer ch.Close()

	sink := newChanSink()
	ch.Listen(sink)

	select {
	case err := <-sink.closed:
		if err != nil {
			t.Errorf("Closed(%v), want nil for normal closure", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close")
	}
}

func TestChannel_AbnormalClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Returning drops the TCP connection without a close frame.
	})
	defer server.Close()

	ch, err := NewDialer(testClientConfig(server), nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer ch.Close()

	sink := newChanSink()
	ch.Listen(sink)

	select {
	case err := <-sink.closed:
		if !errors.Is(err, model.ErrTransport) {
			t.Errorf("Closed(%v), want ErrTransport", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close")
	}
}

func TestChannel_CloseSuppressesEvents(t *testing.T) {
	server := mockWSServer(t, drainReads)
	defer server.Close()

	ch, err := NewDialer(testClientConfig(server), nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	sink := newChanSink()
	ch.Listen(sink)

	if err := ch.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	if err := ch.Send([]byte("x")); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("Send after Close error = %v, want ErrAlreadyClosed", err)
	}

	select {
	case err := <-sink.closed:
		t.Errorf("unexpected Closed(%v) after Close", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannel_StaleDetection(t *testing.T) {
	release := make(chan struct{})
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Never reading means pings are never answered.
		<-release
	})
	defer server.Close()
	defer close(release)

	cfg := testClientConfig(server)
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PingTimeout = 50 * time.Millisecond

	ch, err := NewDialer(cfg, nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer ch.Close()

	sink := newChanSink()
	ch.Listen(sink)

	select {
	case err := <-sink.closed:
		if !errors.Is(err, ErrStaleConnection) {
			t.Errorf("Closed(%v), want ErrStaleConnection", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stale connection not detected")
	}
}

func TestChannel_PongKeepsAlive(t *testing.T) {
	server := mockWSServer(t, drainReads)
	defer server.Close()

	cfg := testClientConfig(server)
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PingTimeout = 100 * time.Millisecond

	ch, err := NewDialer(cfg, nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer ch.Close()

	sink := newChanSink()
	ch.Listen(sink)

	select {
	case err := <-sink.closed:
		t.Errorf("unexpected Closed(%v) while server answers pings", err)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateReconnecting, "reconnecting"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestDefaultConfigs(t *testing.T) {
	cc := DefaultClientConfig()
	if cc.PingTimeout <= cc.PingInterval {
		t.Errorf("PingTimeout = %v, want greater than PingInterval %v", cc.PingTimeout, cc.PingInterval)
	}

	mc := DefaultManagerConfig()
	if mc.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", mc.MaxAttempts)
	}
	if mc.HeartbeatInterval != 30*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 30s", mc.HeartbeatInterval)
	}
	if mc.MetricsInterval != 5*time.Second {
		t.Errorf("MetricsInterval = %v, want 5s", mc.MetricsInterval)
	}
	if mc.InitialMetricsDelay != time.Second {
		t.Errorf("InitialMetricsDelay = %v, want 1s", mc.InitialMetricsDelay)
	}
}
