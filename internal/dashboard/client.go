package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rickgao/marketdash/internal/chart"
	"github.com/rickgao/marketdash/internal/connection"
	"github.com/rickgao/marketdash/internal/ingest"
	"github.com/rickgao/marketdash/internal/market"
	"github.com/rickgao/marketdash/internal/metrics"
	"github.com/rickgao/marketdash/internal/model"
	"github.com/rickgao/marketdash/internal/notify"
	"github.com/rickgao/marketdash/internal/protocol"
	"github.com/rickgao/marketdash/internal/sched"
	"github.com/rickgao/marketdash/internal/stats"
)

// Config holds client configuration.
type Config struct {
	Market          market.Config
	Ingest          ingest.Config
	Connection      connection.ManagerConfig
	Timeframe       chart.Timeframe // Default: 1s
	BytesPerMessage int             // Assumed frame size for the data rate. Default: 100
	MessageLogSize  int             // Default: 100
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Market:          market.DefaultConfig(),
		Ingest:          ingest.DefaultConfig(),
		Connection:      connection.DefaultManagerConfig(),
		Timeframe:       chart.DefaultTimeframe,
		BytesPerMessage: stats.DefaultBytesPerMessage,
		MessageLogSize:  notify.DefaultLogSize,
	}
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	ticks   ingest.TickSink
	sinks   []notify.Sink
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTickSink sets the tick archive.
func WithTickSink(ts ingest.TickSink) Option {
	return func(o *options) {
		o.ticks = ts
	}
}

// WithSink adds a notification sink next to the message log.
func WithSink(sink notify.Sink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, sink)
	}
}

// Client is the dashboard facade.
type Client struct {
	cfg    Config
	runner sched.Runner
	logger *slog.Logger

	store    *market.Store
	pipeline *ingest.Pipeline
	manager  *connection.Manager
	messages *notify.Log
	sink     notify.Sink

	timeframe chart.Timeframe
	startedAt time.Time
}

// New creates a client. Nothing connects until Connect is called.
func New(cfg Config, runner sched.Runner, dialer connection.Dialer, opts ...Option) *Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if _, ok := cfg.Timeframe.Profile(); !ok {
		cfg.Timeframe = chart.DefaultTimeframe
	}

	c := &Client{
		cfg:       cfg,
		runner:    runner,
		logger:    o.logger.With("component", "dashboard"),
		store:     market.NewStore(cfg.Market),
		messages:  notify.NewLog(cfg.MessageLogSize, runner.Now),
		timeframe: cfg.Timeframe,
		startedAt: runner.Now(),
	}
	c.sink = append(notify.Multi{c.messages, notify.NewLogger(o.logger.With("component", "notify"))}, o.sinks...)

	c.pipeline = ingest.New(cfg.Ingest, c.store,
		ingest.WithLogger(o.logger),
		ingest.WithSink(c.sink),
		ingest.WithMetrics(o.metrics),
		ingest.WithTickSink(o.ticks),
	)
	c.manager = connection.NewManager(cfg.Connection, runner, dialer, c.pipeline.Ingest,
		connection.WithLogger(o.logger),
		connection.WithSink(c.sink),
		connection.WithMetrics(o.metrics),
		connection.WithSymbolSource(c.store.Selected),
	)
	return c
}

// run executes f on the loop and returns its error.
func (c *Client) run(ctx context.Context, f func() error) error {
	var err error
	if cerr := c.runner.Call(ctx, func() { err = f() }); cerr != nil {
		return cerr
	}
	return err
}

// query executes f on the loop and returns its result.
func query[T any](ctx context.Context, c *Client, f func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if cerr := c.runner.Call(ctx, func() { out, err = f() }); cerr != nil {
		var zero T
		return zero, cerr
	}
	return out, err
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connect opens the feed connection.
func (c *Client) Connect(ctx context.Context) error {
	return c.run(ctx, func() error {
		c.manager.Connect()
		return nil
	})
}

// Disconnect closes the connection and suppresses automatic reconnects.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.run(ctx, func() error {
		c.manager.Disconnect()
		return nil
	})
}

// Reconnect resets the retry budget and connects.
func (c *Client) Reconnect(ctx context.Context) error {
	return c.run(ctx, func() error {
		c.manager.Reconnect()
		return nil
	})
}

// RequestMetrics asks the server for a metrics snapshot.
func (c *Client) RequestMetrics(ctx context.Context) error {
	return c.run(ctx, c.manager.RequestMetrics)
}

// -----------------------------------------------------------------------------
// Symbols and timeframe
// -----------------------------------------------------------------------------

// SelectSymbol makes symbol the selected one and subscribes to it when
// connected.
func (c *Client) SelectSymbol(ctx context.Context, symbol string) error {
	return c.run(ctx, func() error { return c.selectSymbol(symbol) })
}

func (c *Client) selectSymbol(symbol string) error {
	symbol = market.Normalize(symbol)
	if err := c.store.Select(symbol); err != nil {
		c.sink.Notify("Unknown symbol: "+symbol, model.SeverityWarning)
		return err
	}
	if c.manager.Connected() {
		if err := c.manager.Subscribe(symbol); err != nil {
			c.logger.Warn("subscribe failed", "symbol", symbol, "error", err)
		}
	}
	c.sink.Notify("Selected symbol: "+symbol, model.SeverityInfo)
	return nil
}

// AddSymbol starts tracking symbol.
func (c *Client) AddSymbol(ctx context.Context, symbol string) (market.Record, error) {
	return query(ctx, c, func() (market.Record, error) {
		symbol = market.Normalize(symbol)
		rec, err := c.store.Add(symbol)
		switch {
		case errors.Is(err, market.ErrEmptySymbol):
			c.sink.Notify("Please enter a symbol", model.SeverityWarning)
		case errors.Is(err, market.ErrSymbolExists):
			c.sink.Notify(fmt.Sprintf("Symbol %s already exists", symbol), model.SeverityWarning)
		case err == nil:
			c.sink.Notify("Added symbol: "+symbol, model.SeveritySuccess)
		}
		return rec, err
	})
}

// RemoveSymbol stops tracking symbol. TEST and the selected symbol are
// refused.
func (c *Client) RemoveSymbol(ctx context.Context, symbol string) error {
	return c.run(ctx, func() error {
		symbol = market.Normalize(symbol)
		err := c.store.Remove(symbol)
		switch {
		case errors.Is(err, market.ErrEmptySymbol):
			c.sink.Notify("Please enter a symbol", model.SeverityWarning)
		case errors.Is(err, market.ErrSymbolProtected):
			c.sink.Notify("Cannot remove TEST symbol", model.SeverityWarning)
		case errors.Is(err, market.ErrSymbolSelected):
			c.sink.Notify(fmt.Sprintf("Cannot remove %s - it's currently selected", symbol), model.SeverityWarning)
		case errors.Is(err, market.ErrUnknownSymbol):
			c.sink.Notify("Unknown symbol: "+symbol, model.SeverityWarning)
		case err == nil:
			c.sink.Notify("Removed symbol: "+symbol, model.SeveritySuccess)
		}
		return err
	})
}

// SetTimeframe changes the chart timeframe.
func (c *Client) SetTimeframe(ctx context.Context, tag string) error {
	return c.run(ctx, func() error {
		tf, err := chart.ParseTimeframe(tag)
		if err != nil {
			c.sink.Notify("Unknown timeframe: "+tag, model.SeverityWarning)
			return err
		}
		c.timeframe = tf
		c.sink.Notify(fmt.Sprintf("Timeframe changed to %s", tf), model.SeverityInfo)
		return nil
	})
}

// ClearTrades empties the trade log.
func (c *Client) ClearTrades(ctx context.Context) error {
	return c.run(ctx, func() error {
		c.pipeline.ClearTrades()
		return nil
	})
}

// -----------------------------------------------------------------------------
// Chat and commands
// -----------------------------------------------------------------------------

// SendChat sends a chat message to the server.
func (c *Client) SendChat(ctx context.Context, text string) error {
	return c.run(ctx, func() error { return c.sendChat(strings.TrimSpace(text)) })
}

// Submit handles one line of user input: a leading slash runs a command,
// anything else is sent as chat. Blank input is ignored.
func (c *Client) Submit(ctx context.Context, text string) error {
	return c.run(ctx, func() error {
		text = strings.TrimSpace(text)
		switch {
		case text == "":
			return nil
		case strings.HasPrefix(text, "/"):
			return c.command(text)
		default:
			return c.sendChat(text)
		}
	})
}

func (c *Client) sendChat(text string) error {
	if text == "" {
		return nil
	}
	if !c.manager.Connected() {
		c.sink.Notify("Cannot send message - not connected", model.SeverityError)
		return connection.ErrNotConnected
	}
	if err := c.manager.SendUser(protocol.Chat{Message: text}); err != nil {
		if errors.Is(err, connection.ErrThrottled) {
			c.sink.Notify("Cannot send message - rate limited", model.SeverityWarning)
		}
		return err
	}
	c.sink.Notify("You: "+text, model.SeverityInfo)
	return nil
}

// -----------------------------------------------------------------------------
// Read accessors
// -----------------------------------------------------------------------------

// Status describes the client as a whole.
type Status struct {
	Connection    connection.Status `json:"connection"`
	Selected      string            `json:"selected"`
	Timeframe     chart.Timeframe   `json:"timeframe"`
	TotalMessages int64             `json:"total_messages"`
	Symbols       int               `json:"symbols"`
	StartedAt     time.Time         `json:"started_at"`
}

// Status returns a snapshot of the client.
func (c *Client) Status(ctx context.Context) (Status, error) {
	return query(ctx, c, func() (Status, error) {
		return Status{
			Connection:    c.manager.Status(),
			Selected:      c.store.Selected(),
			Timeframe:     c.timeframe,
			TotalMessages: c.pipeline.Total(),
			Symbols:       c.store.Len(),
			StartedAt:     c.startedAt,
		}, nil
	})
}

// Symbol returns the record of one symbol.
func (c *Client) Symbol(ctx context.Context, symbol string) (market.Record, error) {
	return query(ctx, c, func() (market.Record, error) {
		rec, ok := c.store.Get(symbol)
		if !ok {
			return market.Record{}, fmt.Errorf("%w: %s", market.ErrUnknownSymbol, market.Normalize(symbol))
		}
		return rec, nil
	})
}

// Symbols returns every tracked record, sorted by ticker.
func (c *Client) Symbols(ctx context.Context) ([]market.Record, error) {
	return query(ctx, c, func() ([]market.Record, error) {
		return c.store.List(), nil
	})
}

// Metrics returns the last server metrics snapshot, zero until one arrived.
func (c *Client) Metrics(ctx context.Context) (model.MetricsSnapshot, error) {
	return query(ctx, c, func() (model.MetricsSnapshot, error) {
		snap, _ := c.pipeline.Metrics()
		return snap, nil
	})
}

// TradeLog returns the trade log, newest first.
func (c *Client) TradeLog(ctx context.Context) ([]model.TradeLogEntry, error) {
	return query(ctx, c, func() ([]model.TradeLogEntry, error) {
		return c.pipeline.Trades(), nil
	})
}

// ChartView is the chart series of the selected symbol.
type ChartView struct {
	Symbol    string          `json:"symbol"`
	Timeframe chart.Timeframe `json:"timeframe"`
	Points    []chart.Point   `json:"points"`
}

// Chart returns the selected symbol's series for tag, or for the current
// timeframe when tag is empty.
func (c *Client) Chart(ctx context.Context, tag string) (ChartView, error) {
	return query(ctx, c, func() (ChartView, error) {
		tf := c.timeframe
		if tag != "" {
			var err error
			if tf, err = chart.ParseTimeframe(tag); err != nil {
				return ChartView{}, err
			}
		}
		sym := c.store.Selected()
		seq := chart.Window(c.store.History(sym), tf, c.runner.Now())
		return ChartView{Symbol: sym, Timeframe: tf, Points: chart.Collect(seq)}, nil
	})
}

// Stats computes the statistics of symbol, or of the selected symbol when
// symbol is empty.
func (c *Client) Stats(ctx context.Context, symbol string) (stats.Summary, error) {
	return query(ctx, c, func() (stats.Summary, error) {
		if symbol == "" {
			symbol = c.store.Selected()
		}
		rec, ok := c.store.Get(symbol)
		if !ok {
			return stats.Summary{}, fmt.Errorf("%w: %s", market.ErrUnknownSymbol, market.Normalize(symbol))
		}
		return c.summary(rec), nil
	})
}

func (c *Client) summary(rec market.Record) stats.Summary {
	in := stats.Inputs{
		Symbol:          rec.Symbol,
		Window:          c.pipeline.Arrivals(),
		Total:           c.pipeline.Total(),
		BytesPerMessage: c.cfg.BytesPerMessage,
		Prices:          c.store.Prices(rec.Symbol, stats.VolatilityPoints),
		Bid:             rec.Bid,
		Ask:             rec.Ask,
		Last:            rec.Last,
		DayHigh:         rec.DayHigh,
		DayLow:          rec.DayLow,
	}
	if sess, ok := c.manager.Session(); ok {
		in.SessionStart = sess.StartedAt
	}
	return stats.Summarize(in, c.runner.Now())
}

// Messages returns the system message log, oldest first.
func (c *Client) Messages(ctx context.Context) ([]model.SystemMessage, error) {
	return query(ctx, c, func() ([]model.SystemMessage, error) {
		return c.messages.Entries(), nil
	})
}
