package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketdash"

// Metrics contains all Prometheus metrics for the dashboard client.
type Metrics struct {
	// Connection
	ConnectionState   prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	FramesSent        *prometheus.CounterVec
	SendErrors        prometheus.Counter

	// Ingest
	MessagesReceived *prometheus.CounterVec
	ParseErrors      prometheus.Counter
	UnknownMessages  prometheus.Counter
	TradeEntries     prometheus.Counter

	// Archive
	ArchiveRows    prometheus.Counter
	ArchiveBatches prometheus.Counter
	ArchiveErrors  prometheus.Counter
	ArchiveDropped prometheus.Counter
	ArchiveLatency prometheus.Histogram
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		ConnectionState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Current connection state (0 disconnected, 1 connecting, 2 connected, 3 reconnecting)",
		}),
		ReconnectAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Automatic reconnection attempts scheduled",
		}),
		FramesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Outbound frames by type",
		}, []string{"type"}),
		SendErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Outbound frames that failed to write",
		}),

		MessagesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound frames by declared type",
		}, []string{"type"}),
		ParseErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Inbound frames that could not be decoded",
		}),
		UnknownMessages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_messages_total",
			Help:      "Inbound frames with an unrecognized type",
		}),
		TradeEntries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_log_entries_total",
			Help:      "Entries appended to the trade log",
		}),

		ArchiveRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_rows_total",
			Help:      "Ticks written to the archive",
		}),
		ArchiveBatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_batches_total",
			Help:      "Archive batches flushed",
		}),
		ArchiveErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_errors_total",
			Help:      "Archive batches that failed",
		}),
		ArchiveDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_dropped_total",
			Help:      "Ticks refused because the archive buffer was full",
		}),
		ArchiveLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_flush_seconds",
			Help:      "Archive batch flush latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// SetConnectionState records the numeric connection state.
func (m *Metrics) SetConnectionState(state int) {
	if m == nil {
		return
	}
	m.ConnectionState.Set(float64(state))
}

// RecordReconnectAttempt increments the reconnect counter.
func (m *Metrics) RecordReconnectAttempt() {
	if m == nil {
		return
	}
	m.ReconnectAttempts.Inc()
}

// RecordFrameSent counts an outbound frame.
func (m *Metrics) RecordFrameSent(msgType string) {
	if m == nil {
		return
	}
	m.FramesSent.WithLabelValues(msgType).Inc()
}

// RecordSendError counts a failed write.
func (m *Metrics) RecordSendError() {
	if m == nil {
		return
	}
	m.SendErrors.Inc()
}

// RecordMessage counts an inbound frame of the given type.
func (m *Metrics) RecordMessage(msgType string) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(msgType).Inc()
}

// RecordParseError counts an undecodable frame.
func (m *Metrics) RecordParseError() {
	if m == nil {
		return
	}
	m.ParseErrors.Inc()
}

// RecordUnknown counts a frame with an unrecognized type.
func (m *Metrics) RecordUnknown() {
	if m == nil {
		return
	}
	m.UnknownMessages.Inc()
}

// RecordTradeEntry counts a trade log append.
func (m *Metrics) RecordTradeEntry() {
	if m == nil {
		return
	}
	m.TradeEntries.Inc()
}

// RecordArchiveFlush records a flushed batch.
func (m *Metrics) RecordArchiveFlush(rows int, seconds float64, err error) {
	if m == nil {
		return
	}
	m.ArchiveBatches.Inc()
	m.ArchiveLatency.Observe(seconds)
	if err != nil {
		m.ArchiveErrors.Inc()
		return
	}
	m.ArchiveRows.Add(float64(rows))
}

// RecordArchiveDropped counts a refused tick.
func (m *Metrics) RecordArchiveDropped() {
	if m == nil {
		return
	}
	m.ArchiveDropped.Inc()
}
