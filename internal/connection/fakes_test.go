package connection

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/marketdash/internal/model"
	"github.com/rickgao/marketdash/internal/notify"
	"github.com/rickgao/marketdash/internal/sched"
)

var errDial = errors.New("connection refused")

// fakeChannel records sent frames and lets tests inject inbound events.
type fakeChannel struct {
	mu      sync.Mutex
	sink    EventSink
	sent    [][]byte
	sendErr error
	closed  bool
}

func (c *fakeChannel) Listen(sink EventSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// types returns the type discriminators of the sent frames.
func (c *fakeChannel) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, data := range c.sent {
		var env struct {
			Type string `json:"type"`
		}
		json.Unmarshal(data, &env)
		out = append(out, env.Type)
	}
	return out
}

func (c *fakeChannel) count(msgType string) int {
	n := 0
	for _, typ := range c.types() {
		if typ == msgType {
			n++
		}
	}
	return n
}

func (c *fakeChannel) deliver(data string) {
	c.sink.Message(TimestampedMessage{Data: []byte(data), ReceivedAt: time.Now()})
}

func (c *fakeChannel) drop(err error) {
	c.sink.Closed(err)
}

// fakeDialer hands out fakeChannels or fails on demand.
type fakeDialer struct {
	dials    int
	failAll  bool
	onDial   func()
	channels []*fakeChannel
}

func (d *fakeDialer) Dial(ctx context.Context) (Channel, error) {
	d.dials++
	if d.onDial != nil {
		d.onDial()
	}
	if d.failAll {
		return nil, errDial
	}
	ch := &fakeChannel{}
	d.channels = append(d.channels, ch)
	return ch, nil
}

func (d *fakeDialer) last() *fakeChannel {
	if len(d.channels) == 0 {
		return nil
	}
	return d.channels[len(d.channels)-1]
}

// harness wires a Manager to a fake scheduler and dialer.
type harness struct {
	fs       *sched.Fake
	dialer   *fakeDialer
	m        *Manager
	received []string
	notes    []string
}

var epoch = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, cfg ManagerConfig) *harness {
	t.Helper()
	h := &harness{
		fs:     sched.NewFake(epoch),
		dialer: &fakeDialer{},
	}
	h.m = NewManager(cfg, h.fs, h.dialer,
		func(msg TimestampedMessage) { h.received = append(h.received, string(msg.Data)) },
		WithSink(notify.Func(func(text string, _ model.Severity) { h.notes = append(h.notes, text) })),
		WithSymbolSource(func() string { return "AAPL" }),
	)
	return h
}

func (h *harness) noted(text string) bool {
	for _, n := range h.notes {
		if n == text {
			return true
		}
	}
	return false
}
