// Package notify delivers user-visible status events.
//
// Every state transition and every reported failure of the client becomes
// a (text, severity) notification. Sinks decide what to do with it: log it,
// keep it in a bounded log for renderers, or fan it out.
package notify

import (
	"log/slog"
	"time"

	"github.com/rickgao/marketdash/internal/model"
	"github.com/rickgao/marketdash/internal/ring"
)

// Sink receives notifications. Implementations are called on the event
// loop and must not block.
type Sink interface {
	Notify(text string, severity model.Severity)
}

// Func adapts a function to Sink.
type Func func(text string, severity model.Severity)

func (f Func) Notify(text string, severity model.Severity) { f(text, severity) }

// Discard drops every notification.
var Discard Sink = Func(func(string, model.Severity) {})

// Logger writes notifications to slog at a level matching the severity.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a slog-backed sink.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (l *Logger) Notify(text string, severity model.Severity) {
	switch severity {
	case model.SeverityError:
		l.logger.Error(text)
	case model.SeverityWarning:
		l.logger.Warn(text)
	case model.SeveritySuccess:
		l.logger.Info(text, "severity", severity.String())
	default:
		l.logger.Info(text)
	}
}

// DefaultLogSize is the capacity of the system message log.
const DefaultLogSize = 100

// Log keeps the most recent notifications for renderers. It is owned by
// the event loop.
type Log struct {
	entries *ring.Bounded[model.SystemMessage]
	now     func() time.Time
}

// NewLog creates a log holding at most size entries.
func NewLog(size int, now func() time.Time) *Log {
	if size < 1 {
		size = DefaultLogSize
	}
	if now == nil {
		now = time.Now
	}
	return &Log{
		entries: ring.NewBounded[model.SystemMessage](size),
		now:     now,
	}
}

func (l *Log) Notify(text string, severity model.Severity) {
	l.entries.Push(model.SystemMessage{Time: l.now(), Text: text, Severity: severity})
}

// Entries copies the log, oldest first.
func (l *Log) Entries() []model.SystemMessage {
	return l.entries.Slice()
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return l.entries.Len()
}

// Clear empties the log.
func (l *Log) Clear() {
	l.entries.Clear()
}

// Multi fans a notification out to every sink in order.
type Multi []Sink

func (m Multi) Notify(text string, severity model.Severity) {
	for _, s := range m {
		if s != nil {
			s.Notify(text, severity)
		}
	}
}
