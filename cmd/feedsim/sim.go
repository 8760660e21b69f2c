package main

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rickgao/marketdash/internal/protocol"
)

// Wire frames sent by the simulator.

type marketDataFrame struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Last      float64 `json:"last"`
	Volume    int64   `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

type metricsFrame struct {
	Type        string  `json:"type"`
	Connections int64   `json:"connections"`
	TotalOrders int64   `json:"totalOrders"`
	TotalTrades int64   `json:"totalTrades"`
	AvgLatency  float64 `json:"avgLatency"`
	Timestamp   int64   `json:"timestamp"`
}

type connectionFrame struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type requestFrame struct {
	Type    string `json:"type"`
	Symbol  string `json:"symbol"`
	Message string `json:"message"`
}

var basePrices = map[string]float64{
	"TEST":  100,
	"AAPL":  175,
	"GOOGL": 142,
	"MSFT":  415,
	"AMZN":  178,
	"TSLA":  245,
}

// walker moves each symbol's price by at most ±0.5% per step and quotes a
// 0.1% spread around it.
type walker struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

func newWalker(seed uint64) *walker {
	prices := make(map[string]float64, len(basePrices))
	for sym, p := range basePrices {
		prices[sym] = p
	}
	return &walker{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		prices: prices,
	}
}

func (w *walker) next(symbol string, now time.Time) marketDataFrame {
	w.mu.Lock()
	defer w.mu.Unlock()

	price, ok := w.prices[symbol]
	if !ok {
		price = 100
	}
	price *= 1 + (w.rng.Float64()-0.5)*0.01
	w.prices[symbol] = price

	spread := price * 0.001
	return marketDataFrame{
		Type:      protocol.TypeMarketData,
		Symbol:    symbol,
		Bid:       price - spread/2,
		Ask:       price + spread/2,
		Last:      price,
		Volume:    int64(w.rng.IntN(1000) + 100),
		Timestamp: now.UnixMilli(),
	}
}

// simServer serves the feed on /ws.
type simServer struct {
	walker   *walker
	symbols  []string
	interval time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader
	conns    atomic.Int64
}

func newSimServer(symbols []string, interval time.Duration, seed uint64, logger *slog.Logger) *simServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &simServer{
		walker:   newWalker(seed),
		symbols:  symbols,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *simServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", s.handleWS)
	return r
}

// simConn serializes writes to one client.
type simConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *simConn) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *simServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.conns.Add(1)
	defer s.conns.Add(-1)

	logger := s.logger.With("remote", r.RemoteAddr)
	logger.Info("client connected", "user_agent", r.UserAgent())

	c := &simConn{conn: conn}
	if err := c.send(connectionFrame{
		Type:    protocol.TypeConnection,
		Status:  "connected",
		Message: "Connected to Market Data Feed",
	}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go s.stream(c, done, logger)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info("client disconnected", "error", err)
			return
		}
		s.handleRequest(c, data, logger)
	}
}

// stream pushes one update per symbol every interval.
func (s *simServer) stream(c *simConn, done <-chan struct{}, logger *slog.Logger) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			for _, sym := range s.symbols {
				if err := c.send(s.walker.next(sym, now)); err != nil {
					logger.Debug("stream write failed", "error", err)
					return
				}
			}
		}
	}
}

func (s *simServer) handleRequest(c *simConn, data []byte, logger *slog.Logger) {
	var req requestFrame
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Warn("bad request frame", "error", err)
		return
	}

	var reply any
	switch req.Type {
	case protocol.TypeGetMetrics:
		n := s.conns.Load()
		reply = metricsFrame{
			Type:        protocol.TypeMetrics,
			Connections: n,
			TotalOrders: n * 100,
			TotalTrades: n * 50,
			AvgLatency:  85.5,
			Timestamp:   time.Now().UnixMilli(),
		}
	case protocol.TypeSubscribe:
		reply = connectionFrame{Type: protocol.TypeConnection, Status: "subscribed", Message: "Subscribed to " + req.Symbol}
	case protocol.TypeChat:
		logger.Info("chat", "message", req.Message)
	case protocol.TypeHeartbeat, protocol.TypePing:
	default:
		logger.Debug("unknown request type", "type", req.Type)
	}

	if reply != nil {
		if err := c.send(reply); err != nil {
			logger.Debug("reply failed", "type", req.Type, "error", err)
		}
	}
}
