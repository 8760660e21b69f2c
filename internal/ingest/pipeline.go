package ingest

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rickgao/marketdash/internal/connection"
	"github.com/rickgao/marketdash/internal/market"
	"github.com/rickgao/marketdash/internal/metrics"
	"github.com/rickgao/marketdash/internal/model"
	"github.com/rickgao/marketdash/internal/notify"
	"github.com/rickgao/marketdash/internal/protocol"
	"github.com/rickgao/marketdash/internal/ring"
)

// Config holds pipeline configuration.
type Config struct {
	RateWindow       int     // Arrival instants kept for rate computation. Default: 60
	TradeLogSize     int     // Default: 100
	TradeThreshold   float64 // Minimum |Δprice| for a trade log entry. Default: 0.01
	DefaultTradeSize float64 // Size used when an update carries no volume. Default: 100
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RateWindow:       60,
		TradeLogSize:     100,
		TradeThreshold:   0.01,
		DefaultTradeSize: 100,
	}
}

// TickSink accepts merged ticks without blocking. Offer returns false when
// the tick was refused.
type TickSink interface {
	Offer(tick model.Tick) bool
}

// Stats contains pipeline counters.
type Stats struct {
	Received     int64
	Metrics      int64
	MarketData   int64
	Notices      int64
	Unknown      int64
	ParseErrors  int64
	Trades       int64
	TicksOffered int64
	TicksDropped int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithSink sets the notification sink.
func WithSink(sink notify.Sink) Option {
	return func(p *Pipeline) {
		p.sink = sink
	}
}

// WithMetrics sets Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithTickSink sets the archive that receives merged ticks.
func WithTickSink(ts TickSink) Option {
	return func(p *Pipeline) {
		p.ticks = ts
	}
}

// Pipeline decodes and dispatches inbound frames.
type Pipeline struct {
	cfg     Config
	store   *market.Store
	logger  *slog.Logger
	sink    notify.Sink
	metrics *metrics.Metrics
	ticks   TickSink

	arrivals *ring.Bounded[time.Time]
	trades   *ring.Bounded[model.TradeLogEntry]

	snapshot    model.MetricsSnapshot
	hasSnapshot bool

	stats Stats
}

// New creates a pipeline feeding store.
func New(cfg Config, store *market.Store, opts ...Option) *Pipeline {
	def := DefaultConfig()
	if cfg.RateWindow < 1 {
		cfg.RateWindow = def.RateWindow
	}
	if cfg.TradeLogSize < 1 {
		cfg.TradeLogSize = def.TradeLogSize
	}
	if cfg.TradeThreshold < 0 {
		cfg.TradeThreshold = def.TradeThreshold
	}
	if cfg.DefaultTradeSize <= 0 {
		cfg.DefaultTradeSize = def.DefaultTradeSize
	}

	p := &Pipeline{
		cfg:      cfg,
		store:    store,
		arrivals: ring.NewBounded[time.Time](cfg.RateWindow),
		trades:   ring.NewBounded[model.TradeLogEntry](cfg.TradeLogSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "ingest")
	if p.sink == nil {
		p.sink = notify.Discard
	}
	return p
}

// Ingest processes one inbound frame.
func (p *Pipeline) Ingest(msg connection.TimestampedMessage) {
	at := msg.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}

	p.stats.Received++
	p.arrivals.Push(at)

	in, err := protocol.Decode(msg.Data)
	if err != nil {
		p.stats.ParseErrors++
		p.metrics.RecordParseError()
		p.logger.Warn("failed to parse message", "error", err, "size", len(msg.Data))
		p.sink.Notify("Error parsing message: "+err.Error(), model.SeverityError)
		return
	}
	p.metrics.RecordMessage(in.Type())

	switch m := in.(type) {
	case *protocol.Metrics:
		p.handleMetrics(m, at)
	case *protocol.MarketData:
		p.handleMarketData(m, at)
	case *protocol.ConnectionNotice:
		p.stats.Notices++
		text := m.Message
		if text == "" {
			text = m.Status
		}
		p.sink.Notify(text, model.SeveritySuccess)
	case *protocol.Unknown:
		p.stats.Unknown++
		p.metrics.RecordUnknown()
		p.logger.Debug("unknown message type", "type", m.Kind)
		p.sink.Notify("Unknown message type: "+m.Kind, model.SeverityWarning)
	}
}

func (p *Pipeline) handleMetrics(m *protocol.Metrics, at time.Time) {
	p.stats.Metrics++
	p.snapshot = model.MetricsSnapshot{
		Connections:  m.Connections,
		TotalOrders:  m.TotalOrders,
		TotalTrades:  m.TotalTrades,
		AvgLatencyMs: m.AvgLatencyMs,
		ReceivedAt:   at,
	}
	p.hasSnapshot = true
	p.sink.Notify(fmt.Sprintf("Metrics updated: %d connections", m.Connections), model.SeverityInfo)
}

func (p *Pipeline) handleMarketData(m *protocol.MarketData, at time.Time) {
	p.stats.MarketData++

	change := p.store.Upsert(m.Symbol, market.Update{
		Bid:       m.Bid,
		Ask:       m.Ask,
		Last:      m.Last,
		Volume:    m.Volume,
		Timestamp: m.Timestamp,
	}, at)
	if change.Created {
		p.logger.Debug("symbol created by feed", "symbol", change.Symbol)
	}

	if p.store.IsSelected(change.Symbol) && math.Abs(change.Price-change.Previous) > p.cfg.TradeThreshold {
		size := p.cfg.DefaultTradeSize
		if m.Volume != nil && *m.Volume > 0 {
			size = *m.Volume
		}
		p.trades.Push(model.NewTradeLogEntry(at, change.Previous, change.Price, size))
		p.stats.Trades++
		p.metrics.RecordTradeEntry()
	}

	if p.ticks != nil {
		rec := change.Record
		tick := model.Tick{
			Symbol:     rec.Symbol,
			Bid:        rec.Bid,
			Ask:        rec.Ask,
			Last:       rec.Last,
			Volume:     rec.Volume,
			ExchangeTS: rec.Timestamp,
			ReceivedAt: at,
		}
		p.stats.TicksOffered++
		if !p.ticks.Offer(tick) {
			p.stats.TicksDropped++
			p.metrics.RecordArchiveDropped()
		}
	}
}

// Total returns the number of frames received.
func (p *Pipeline) Total() int64 {
	return p.stats.Received
}

// Arrivals returns the recent arrival instants, oldest first.
func (p *Pipeline) Arrivals() []time.Time {
	return p.arrivals.Slice()
}

// Metrics returns the last server metrics snapshot. The second result is
// false until a metrics frame has been received.
func (p *Pipeline) Metrics() (model.MetricsSnapshot, bool) {
	return p.snapshot, p.hasSnapshot
}

// Trades returns the trade log, newest first.
func (p *Pipeline) Trades() []model.TradeLogEntry {
	out := make([]model.TradeLogEntry, 0, p.trades.Len())
	for _, e := range p.trades.Backward() {
		out = append(out, e)
	}
	return out
}

// ClearTrades empties the trade log.
func (p *Pipeline) ClearTrades() {
	p.trades.Clear()
}

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return p.stats
}
