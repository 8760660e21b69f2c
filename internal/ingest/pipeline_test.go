package ingest

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/marketdash/internal/connection"
	"github.com/rickgao/marketdash/internal/market"
	"github.com/rickgao/marketdash/internal/model"
	"github.com/rickgao/marketdash/internal/notify"
)

type note struct {
	text     string
	severity model.Severity
}

type recorder struct {
	notes []note
}

func (r *recorder) Notify(text string, severity model.Severity) {
	r.notes = append(r.notes, note{text, severity})
}

func (r *recorder) last() note {
	if len(r.notes) == 0 {
		return note{}
	}
	return r.notes[len(r.notes)-1]
}

type tickRecorder struct {
	ticks  []model.Tick
	refuse bool
}

func (t *tickRecorder) Offer(tick model.Tick) bool {
	if t.refuse {
		return false
	}
	t.ticks = append(t.ticks, tick)
	return true
}

var t0 = time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

func frame(data string, at time.Time) connection.TimestampedMessage {
	return connection.TimestampedMessage{Data: []byte(data), ReceivedAt: at}
}

func newTestPipeline(opts ...Option) (*Pipeline, *market.Store, *recorder) {
	store := market.NewStore(market.DefaultConfig())
	rec := &recorder{}
	opts = append([]Option{WithSink(rec)}, opts...)
	return New(DefaultConfig(), store, opts...), store, rec
}

func TestPipeline_Metrics(t *testing.T) {
	p, _, rec := newTestPipeline()

	if _, ok := p.Metrics(); ok {
		t.Error("Metrics() ok before any metrics frame")
	}

	p.Ingest(frame(`{"type":"metrics","connections":3,"totalOrders":120,"totalTrades":45,"avgLatency":1.25}`, t0))

	snap, ok := p.Metrics()
	if !ok {
		t.Fatal("Metrics() returned false")
	}
	want := model.MetricsSnapshot{Connections: 3, TotalOrders: 120, TotalTrades: 45, AvgLatencyMs: 1.25, ReceivedAt: t0}
	if snap != want {
		t.Errorf("Metrics() = %+v, want %+v", snap, want)
	}
	if got := rec.last(); got.text != "Metrics updated: 3 connections" || got.severity != model.SeverityInfo {
		t.Errorf("notification = %+v", got)
	}

	// A later snapshot replaces the whole record; absent fields become zero.
	p.Ingest(frame(`{"type":"metrics","connections":1}`, t0.Add(time.Second)))
	snap, _ = p.Metrics()
	if snap.Connections != 1 || snap.TotalOrders != 0 || snap.AvgLatencyMs != 0 {
		t.Errorf("Metrics() after partial frame = %+v", snap)
	}
}

func TestPipeline_MarketDataUpdatesStore(t *testing.T) {
	p, store, _ := newTestPipeline()

	p.Ingest(frame(`{"type":"market_data","symbol":"AAPL","bid":149.9,"ask":150.1,"last":150,"volume":500,"timestamp":1705329000000}`, t0))

	rec, ok := store.Get("AAPL")
	if !ok {
		t.Fatal("AAPL missing from store")
	}
	if rec.Bid != 149.9 || rec.Ask != 150.1 || rec.Last != 150 || rec.Volume != 500 {
		t.Errorf("record = %+v", rec)
	}
	if !rec.Timestamp.Equal(time.UnixMilli(1705329000000)) {
		t.Errorf("Timestamp = %v, want source timestamp", rec.Timestamp)
	}
	if rec.Points != 1 {
		t.Errorf("Points = %d, want 1", rec.Points)
	}
}

func TestPipeline_TradeLogOnlyForSelected(t *testing.T) {
	p, store, _ := newTestPipeline()
	if err := store.Select("AAPL"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	p.Ingest(frame(`{"type":"market_data","symbol":"AAPL","last":150,"volume":10}`, t0))
	p.Ingest(frame(`{"type":"market_data","symbol":"AAPL","last":152}`, t0.Add(time.Second)))
	p.Ingest(frame(`{"type":"market_data","symbol":"AAPL","last":152.005}`, t0.Add(2*time.Second)))
	p.Ingest(frame(`{"type":"market_data","symbol":"MSFT","last":300}`, t0.Add(3*time.Second)))
	p.Ingest(frame(`{"type":"market_data","symbol":"AAPL","last":151}`, t0.Add(4*time.Second)))

	trades := p.Trades()
	if len(trades) != 3 {
		t.Fatalf("len(Trades()) = %d, want 3", len(trades))
	}

	// Newest first.
	want := []model.TradeLogEntry{
		{Time: t0.Add(4 * time.Second), Side: model.SideSell, Price: 151, Size: 100, Value: 15100},
		{Time: t0.Add(time.Second), Side: model.SideBuy, Price: 152, Size: 100, Value: 15200},
		{Time: t0, Side: model.SideBuy, Price: 150, Size: 10, Value: 1500},
	}
	for i := range want {
		if trades[i] != want[i] {
			t.Errorf("Trades()[%d] = %+v, want %+v", i, trades[i], want[i])
		}
	}

	p.ClearTrades()
	if len(p.Trades()) != 0 {
		t.Error("Trades() not empty after ClearTrades")
	}
}

func TestPipeline_TradeLogBounded(t *testing.T) {
	store := market.NewStore(market.DefaultConfig())
	cfg := DefaultConfig()
	cfg.TradeLogSize = 3
	p := New(cfg, store)

	for i := 1; i <= 5; i++ {
		p.Ingest(frame(`{"type":"market_data","symbol":"TEST","last":`+strings.Repeat("1", i)+`}`, t0))
	}
	if got := len(p.Trades()); got != 3 {
		t.Errorf("len(Trades()) = %d, want 3", got)
	}
	if got := p.Trades()[0].Price; got != 11111 {
		t.Errorf("newest trade price = %v, want 11111", got)
	}
}

func TestPipeline_ConnectionNotice(t *testing.T) {
	p, _, rec := newTestPipeline()

	p.Ingest(frame(`{"type":"connection","status":"connected","message":"Welcome to the market feed"}`, t0))

	if got := rec.last(); got.text != "Welcome to the market feed" || got.severity != model.SeveritySuccess {
		t.Errorf("notification = %+v", got)
	}
}

func TestPipeline_UnknownType(t *testing.T) {
	p, _, rec := newTestPipeline()

	p.Ingest(frame(`{"type":"orderbook"}`, t0))

	if got := rec.last(); got.text != "Unknown message type: orderbook" || got.severity != model.SeverityWarning {
		t.Errorf("notification = %+v", got)
	}
	if p.Stats().Unknown != 1 {
		t.Errorf("Stats().Unknown = %d, want 1", p.Stats().Unknown)
	}
}

func TestPipeline_MalformedFrames(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `not json`},
		{"missing type", `{"symbol":"AAPL"}`},
		{"missing symbol", `{"type":"market_data","last":1}`},
		{"negative volume", `{"type":"market_data","symbol":"AAPL","volume":-1}`},
		{"wrong field type", `{"type":"market_data","symbol":"AAPL","last":"high"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, rec := newTestPipeline()
			before := store.Len()

			p.Ingest(frame(tt.data, t0))

			got := rec.last()
			if !strings.HasPrefix(got.text, "Error parsing message: ") || got.severity != model.SeverityError {
				t.Errorf("notification = %+v", got)
			}
			if p.Stats().ParseErrors != 1 {
				t.Errorf("Stats().ParseErrors = %d, want 1", p.Stats().ParseErrors)
			}
			// Malformed frames still count as received.
			if p.Total() != 1 {
				t.Errorf("Total() = %d, want 1", p.Total())
			}
			if store.Len() != before {
				t.Errorf("store.Len() = %d, want %d", store.Len(), before)
			}
		})
	}
}

func TestPipeline_ArrivalsBounded(t *testing.T) {
	p, _, _ := newTestPipeline(WithSink(notify.Discard))

	for i := 0; i < 75; i++ {
		p.Ingest(frame(`{"type":"heartbeat_ack"}`, t0.Add(time.Duration(i)*time.Millisecond)))
	}

	arrivals := p.Arrivals()
	if len(arrivals) != 60 {
		t.Fatalf("len(Arrivals()) = %d, want 60", len(arrivals))
	}
	if !arrivals[0].Equal(t0.Add(15 * time.Millisecond)) {
		t.Errorf("oldest arrival = %v, want t0+15ms", arrivals[0])
	}
	if p.Total() != 75 {
		t.Errorf("Total() = %d, want 75", p.Total())
	}
}

func TestPipeline_OffersTicks(t *testing.T) {
	ticks := &tickRecorder{}
	p, _, _ := newTestPipeline(WithTickSink(ticks))

	p.Ingest(frame(`{"type":"market_data","symbol":"msft","bid":299.5,"ask":300.5,"last":300}`, t0))
	p.Ingest(frame(`{"type":"metrics","connections":1}`, t0))

	if len(ticks.ticks) != 1 {
		t.Fatalf("ticks offered = %d, want 1", len(ticks.ticks))
	}
	got := ticks.ticks[0]
	if got.Symbol != "MSFT" || got.Last != 300 || got.Bid != 299.5 || got.Ask != 300.5 {
		t.Errorf("tick = %+v", got)
	}
	// Without a source timestamp the receive time is used.
	if !got.ExchangeTS.Equal(t0) || !got.ReceivedAt.Equal(t0) {
		t.Errorf("tick times = %v / %v, want %v", got.ExchangeTS, got.ReceivedAt, t0)
	}

	ticks.refuse = true
	p.Ingest(frame(`{"type":"market_data","symbol":"MSFT","last":301}`, t0))
	if st := p.Stats(); st.TicksOffered != 2 || st.TicksDropped != 1 {
		t.Errorf("Stats() = %+v, want 2 offered and 1 dropped", st)
	}
}

func TestPipeline_ZeroFieldsKeepPrevious(t *testing.T) {
	p, store, _ := newTestPipeline()

	p.Ingest(frame(`{"type":"market_data","symbol":"AAPL","bid":149,"ask":151,"last":150}`, t0))
	p.Ingest(frame(`{"type":"market_data","symbol":"AAPL","bid":0,"last":150.5}`, t0.Add(time.Second)))

	rec, _ := store.Get("AAPL")
	if rec.Bid != 149 {
		t.Errorf("Bid = %v, want 149", rec.Bid)
	}
	if rec.Last != 150.5 {
		t.Errorf("Last = %v, want 150.5", rec.Last)
	}
	if rec.DayHigh != 150.5 || rec.DayLow != 150 {
		t.Errorf("day range = [%v, %v], want [150, 150.5]", rec.DayLow, rec.DayHigh)
	}
	if math.IsInf(rec.DayLow, 1) {
		t.Error("DayLow still +Inf after prices were observed")
	}
}
