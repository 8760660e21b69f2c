package connection

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/rickgao/marketdash/internal/metrics"
	"github.com/rickgao/marketdash/internal/model"
	"github.com/rickgao/marketdash/internal/notify"
	"github.com/rickgao/marketdash/internal/protocol"
	"github.com/rickgao/marketdash/internal/sched"
)

// MessageHandler consumes inbound frames on the event loop.
type MessageHandler func(msg TimestampedMessage)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSink sets the notification sink.
func WithSink(sink notify.Sink) ManagerOption {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithMetrics sets Prometheus instrumentation.
func WithMetrics(mx *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mx
	}
}

// WithSymbolSource sets the function that names the symbol to subscribe
// to when a channel opens.
func WithSymbolSource(fn func() string) ManagerOption {
	return func(m *Manager) {
		m.symbol = fn
	}
}

// Manager drives the connection state machine. It is confined to the
// event loop of its scheduler.
type Manager struct {
	cfg     ManagerConfig
	sched   sched.Scheduler
	dialer  Dialer
	handler MessageHandler
	logger  *slog.Logger
	sink    notify.Sink
	metrics *metrics.Metrics
	symbol  func() string
	limiter *rate.Limiter

	state    State
	since    time.Time
	attempts int
	gen      uint64 // Bumped whenever the current channel or dial is abandoned
	ch       Channel
	session  *Session

	dialCancel     context.CancelFunc
	retry          sched.Timer
	initialMetrics sched.Timer
	heartbeat      *periodic
	poller         *periodic
}

// NewManager creates a Manager in the Disconnected state.
func NewManager(cfg ManagerConfig, s sched.Scheduler, dialer Dialer, handler MessageHandler, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:     cfg,
		sched:   s,
		dialer:  dialer,
		handler: handler,
		state:   StateDisconnected,
		since:   s.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "connection")
	if m.sink == nil {
		m.sink = notify.Discard
	}
	if m.symbol == nil {
		m.symbol = func() string { return "" }
	}
	if m.handler == nil {
		m.handler = func(TimestampedMessage) {}
	}
	if cfg.UserRate > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(cfg.UserRate), max(cfg.UserBurst, 1))
	}

	m.heartbeat = newPeriodic(cfg.HeartbeatInterval, s, m.sendHeartbeat)
	m.poller = newPeriodic(cfg.MetricsInterval, s, m.pollMetrics)
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	return m.state
}

// Connected reports whether a channel is open.
func (m *Manager) Connected() bool {
	return m.state == StateConnected
}

// Session returns the session of the open channel.
func (m *Manager) Session() (Session, bool) {
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Status returns a snapshot of the manager.
func (m *Manager) Status() Status {
	st := Status{
		State:       m.state,
		Attempts:    m.attempts,
		MaxAttempts: m.cfg.MaxAttempts,
		Exhausted:   m.Exhausted(),
		Since:       m.since,
	}
	if m.session != nil {
		s := *m.session
		st.Session = &s
	}
	return st
}

// Exhausted reports whether automatic recovery has stopped, either after
// too many failures or after a manual disconnect.
func (m *Manager) Exhausted() bool {
	return m.state == StateDisconnected && m.attempts >= m.cfg.MaxAttempts
}

// Connect opens a channel. It is a no-op while Connected or Connecting.
func (m *Manager) Connect() {
	switch m.state {
	case StateConnected, StateConnecting:
		return
	}
	m.cancelRetry()
	m.dial()
}

// Disconnect closes the channel and suppresses automatic reconnects until
// Reconnect is called.
func (m *Manager) Disconnect() {
	m.cancelRetry()
	m.teardown()
	m.attempts = m.cfg.MaxAttempts
	m.setState(StateDisconnected)
	m.notify("Manually disconnected from server", model.SeverityInfo)
}

// Reconnect resets the attempt counter and connects immediately.
func (m *Manager) Reconnect() {
	m.attempts = 0
	m.Connect()
}

// Send encodes and writes a frame. A write failure is handled like a
// transport error on the channel.
func (m *Manager) Send(msg protocol.Outbound) error {
	if m.state != StateConnected || m.ch == nil {
		return ErrNotConnected
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type(), err)
	}

	if err := m.ch.Send(data); err != nil {
		m.metrics.RecordSendError()
		m.logger.Warn("send failed", "type", msg.Type(), "error", err)
		m.lost(err)
		return fmt.Errorf("send %s: %w", msg.Type(), err)
	}

	m.metrics.RecordFrameSent(msg.Type())
	return nil
}

// SendUser sends a user-originated frame (chat, ping) through the rate
// limiter.
func (m *Manager) SendUser(msg protocol.Outbound) error {
	if m.state != StateConnected {
		return ErrNotConnected
	}
	if m.limiter != nil && !m.limiter.AllowN(m.sched.Now(), 1) {
		return ErrThrottled
	}
	return m.Send(msg)
}

// RequestMetrics sends get_metrics on demand. When not connected the
// request is reported and refused.
func (m *Manager) RequestMetrics() error {
	if m.state != StateConnected {
		m.notify("Cannot request metrics - not connected", model.SeverityWarning)
		return ErrNotConnected
	}
	if err := m.Send(protocol.GetMetrics{Timestamp: m.sched.Now()}); err != nil {
		return err
	}
	m.notify("Requesting performance metrics...", model.SeverityInfo)
	return nil
}

// Subscribe asks the feed for symbol if a channel is open.
func (m *Manager) Subscribe(symbol string) error {
	return m.Send(protocol.Subscribe{Symbol: symbol})
}

// dial starts an open attempt off the loop. The result is posted back.
func (m *Manager) dial() {
	m.gen++
	gen := m.gen
	m.setState(StateConnecting)
	m.notify("Connecting to WebSocket server...", model.SeverityInfo)

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.cfg.DialTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), m.cfg.DialTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	m.dialCancel = cancel

	m.sched.Go(func() {
		ch, err := m.dialer.Dial(ctx)
		m.sched.Post(func() { m.dialed(gen, ch, err) })
	})
}

func (m *Manager) dialed(gen uint64, ch Channel, err error) {
	if gen != m.gen || m.state != StateConnecting {
		// Superseded by Disconnect or a newer dial.
		if ch != nil {
			m.sched.Go(func() { ch.Close() })
		}
		return
	}
	m.cancelDial()

	if err != nil {
		m.logger.Warn("connection failed", "attempt", m.attempts, "error", err)
		m.notify("Connection error: "+err.Error(), model.SeverityError)
		m.scheduleReconnect()
		return
	}

	m.opened(gen, ch)
}

// opened enters Connected.
func (m *Manager) opened(gen uint64, ch Channel) {
	m.ch = ch
	m.attempts = 0
	sess := newSession(m.sched.Now())
	m.session = &sess
	m.setState(StateConnected)
	m.logger.Info("websocket connection established", "session", sess.ID)
	m.notify("WebSocket connection established", model.SeveritySuccess)

	ch.Listen(&channelEvents{m: m, gen: gen})

	m.heartbeat.start()
	m.poller.start()
	m.initialMetrics = m.sched.AfterFunc(m.cfg.InitialMetricsDelay, func() {
		m.initialMetrics = nil
		m.RequestMetrics()
	})

	if sym := m.symbol(); sym != "" {
		if err := m.Subscribe(sym); err != nil {
			m.logger.Warn("subscribe failed", "symbol", sym, "error", err)
		}
	}
}

// lost handles the end of an open channel that we did not close.
func (m *Manager) lost(err error) {
	if m.state != StateConnected {
		return
	}
	if err != nil {
		m.logger.Warn("websocket error", "session", m.sessionID(), "error", err)
		m.notify("WebSocket error: "+err.Error(), model.SeverityError)
	}
	m.teardown()
	m.notify("WebSocket connection closed", model.SeverityWarning)
	m.scheduleReconnect()
}

// scheduleReconnect arms the next attempt or gives up.
func (m *Manager) scheduleReconnect() {
	if m.attempts >= m.cfg.MaxAttempts {
		m.setState(StateDisconnected)
		m.logger.Error("max reconnection attempts reached", "attempts", m.attempts)
		m.notify("Max reconnection attempts reached", model.SeverityError)
		return
	}

	m.attempts++
	delay := m.cfg.Backoff.Delay(m.attempts)
	m.setState(StateReconnecting)
	m.metrics.RecordReconnectAttempt()
	m.notify(fmt.Sprintf("Reconnecting in %s seconds (attempt %d/%d)",
		strconv.FormatFloat(delay.Seconds(), 'f', -1, 64), m.attempts, m.cfg.MaxAttempts),
		model.SeverityInfo)

	m.retry = m.sched.AfterFunc(delay, func() {
		m.retry = nil
		if m.state == StateReconnecting {
			m.dial()
		}
	})
}

// teardown stops the periodic tasks and closes the channel. It runs
// before any state change out of Connected.
func (m *Manager) teardown() {
	m.heartbeat.stop()
	m.poller.stop()
	if m.initialMetrics != nil {
		m.initialMetrics.Stop()
		m.initialMetrics = nil
	}
	m.cancelDial()

	if ch := m.ch; ch != nil {
		m.sched.Go(func() {
			if err := ch.Close(); err != nil {
				m.logger.Debug("close failed", "error", err)
			}
		})
	}
	m.ch = nil
	m.session = nil
	m.gen++
}

func (m *Manager) cancelRetry() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

func (m *Manager) cancelDial() {
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
}

func (m *Manager) sendHeartbeat() {
	if err := m.Send(protocol.Heartbeat{Timestamp: m.sched.Now()}); err != nil {
		m.logger.Debug("heartbeat not sent", "error", err)
	}
}

func (m *Manager) pollMetrics() {
	if err := m.Send(protocol.GetMetrics{Timestamp: m.sched.Now()}); err != nil {
		m.logger.Debug("metrics poll not sent", "error", err)
	}
}

func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	m.logger.Debug("state change", "from", m.state, "to", s)
	m.state = s
	m.since = m.sched.Now()
	m.metrics.SetConnectionState(int(s))
}

func (m *Manager) notify(text string, severity model.Severity) {
	m.sink.Notify(text, severity)
}

func (m *Manager) sessionID() string {
	if m.session == nil {
		return ""
	}
	return m.session.ID
}

// channelEvents posts transport events of one channel generation to the loop.
type channelEvents struct {
	m   *Manager
	gen uint64
}

func (e *channelEvents) Message(msg TimestampedMessage) {
	e.m.sched.Post(func() {
		if e.gen == e.m.gen {
			e.m.handler(msg)
		}
	})
}

func (e *channelEvents) Closed(err error) {
	e.m.sched.Post(func() {
		if e.gen == e.m.gen {
			e.m.lost(err)
		}
	})
}
