package main

import (
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/marketdash/internal/protocol"
)

func TestWalker_StepBounds(t *testing.T) {
	w := newWalker(42)
	prev := basePrices["AAPL"]
	now := time.Unix(1700000000, 0)

	for i := range 500 {
		f := w.next("AAPL", now)
		if math.Abs(f.Last/prev-1) > 0.005+1e-12 {
			t.Fatalf("step %d moved %.4f%%, want at most 0.5%%", i, (f.Last/prev-1)*100)
		}
		if got := (f.Ask - f.Bid) / f.Last; math.Abs(got-0.001) > 1e-9 {
			t.Fatalf("step %d spread = %v of last, want 0.001", i, got)
		}
		if f.Volume < 100 || f.Volume >= 1100 {
			t.Fatalf("step %d volume = %d, want [100, 1100)", i, f.Volume)
		}
		if f.Timestamp != now.UnixMilli() {
			t.Fatalf("Timestamp = %d, want %d", f.Timestamp, now.UnixMilli())
		}
		prev = f.Last
	}
}

func TestWalker_UnknownSymbolStartsAt100(t *testing.T) {
	f := newWalker(1).next("NVDA", time.Now())
	if f.Last < 99.5 || f.Last > 100.5 {
		t.Errorf("Last = %v, want within 0.5%% of 100", f.Last)
	}
}

func TestWalker_Deterministic(t *testing.T) {
	now := time.Now()
	a, b := newWalker(7), newWalker(7)
	for range 10 {
		if fa, fb := a.next("TSLA", now), b.next("TSLA", now); fa != fb {
			t.Fatalf("same seed diverged: %+v vs %+v", fa, fb)
		}
	}
}

func dialSim(t *testing.T, sim *simServer) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(sim.routes())
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readInbound(t *testing.T, conn *websocket.Conn) protocol.Inbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func TestSimServer_Session(t *testing.T) {
	// A long interval keeps market data out of the request/reply exchange.
	sim := newSimServer([]string{"AAPL"}, time.Hour, 1, nil)
	conn := dialSim(t, sim)

	welcome, ok := readInbound(t, conn).(*protocol.ConnectionNotice)
	if !ok {
		t.Fatal("first frame is not a connection notice")
	}
	if welcome.Message != "Connected to Market Data Feed" {
		t.Errorf("welcome = %q", welcome.Message)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"get_metrics","timestamp":1}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, ok := readInbound(t, conn).(*protocol.Metrics)
	if !ok {
		t.Fatal("reply is not metrics")
	}
	if m.Connections != 1 || m.TotalOrders != 100 || m.TotalTrades != 50 || m.AvgLatencyMs != 85.5 {
		t.Errorf("metrics = %+v", m)
	}

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe","symbol":"MSFT"}`))
	sub, ok := readInbound(t, conn).(*protocol.ConnectionNotice)
	if !ok || sub.Message != "Subscribed to MSFT" {
		t.Errorf("subscribe reply = %+v", sub)
	}
}

func TestSimServer_Streams(t *testing.T) {
	sim := newSimServer([]string{"AAPL", "TSLA"}, 10*time.Millisecond, 1, nil)
	conn := dialSim(t, sim)
	readInbound(t, conn) // welcome

	seen := map[string]bool{}
	for len(seen) < 2 {
		md, ok := readInbound(t, conn).(*protocol.MarketData)
		if !ok {
			t.Fatal("expected market data")
		}
		if md.Last == nil || md.Bid == nil || md.Ask == nil || md.Timestamp == nil {
			t.Fatalf("incomplete update: %+v", md)
		}
		seen[md.Symbol] = true
	}
}
