package market

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rickgao/marketdash/internal/model"
)

var t0 = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

func TestNewStore_Seeds(t *testing.T) {
	s := NewStore(DefaultConfig())

	want := []string{"AAPL", "AMZN", "GOOGL", "MSFT", "TEST", "TSLA"}
	got := s.Symbols()
	if len(got) != len(want) {
		t.Fatalf("Symbols() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Symbols()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if s.Selected() != "TEST" {
		t.Errorf("Selected() = %q, want TEST", s.Selected())
	}

	rec, _ := s.Get("aapl")
	if rec.Last != 0 || rec.DayHigh != 0 || !math.IsInf(rec.DayLow, 1) {
		t.Errorf("seeded record = %+v, want zero prices and +Inf day low", rec)
	}
}

func TestNewStore_AlwaysHasTest(t *testing.T) {
	s := NewStore(Config{Symbols: []string{"btc"}, Selected: "nope"})

	if !s.Has("TEST") {
		t.Error("TEST should always be present")
	}
	if !s.Has("BTC") {
		t.Error("seed symbols should be normalized to uppercase")
	}
	if s.Selected() != "TEST" {
		t.Errorf("Selected() = %q, want TEST for unknown configured selection", s.Selected())
	}
}

func TestUpsert_SparseMerge(t *testing.T) {
	s := NewStore(DefaultConfig())

	s.Upsert("AAPL", Update{Bid: f(10), Ask: f(11)}, t0)
	ch := s.Upsert("AAPL", Update{Last: f(12)}, t0.Add(time.Second))

	rec := ch.Record
	if rec.Bid != 10 || rec.Ask != 11 || rec.Last != 12 {
		t.Errorf("after sparse update bid=%v ask=%v last=%v, want 10 11 12", rec.Bid, rec.Ask, rec.Last)
	}
	if ch.Previous != 0 || ch.Price != 12 {
		t.Errorf("Change previous=%v price=%v, want 0 12", ch.Previous, ch.Price)
	}
}

func TestUpsert_CreatesUnseenSymbol(t *testing.T) {
	s := NewStore(DefaultConfig())

	ch := s.Upsert("nflx", Update{Last: f(450)}, t0)
	if !ch.Created {
		t.Error("Created = false for unseen symbol")
	}
	if ch.Symbol != "NFLX" {
		t.Errorf("Symbol = %q, want NFLX", ch.Symbol)
	}
	if !s.Has("NFLX") {
		t.Error("NFLX not tracked after upsert")
	}
}

func TestUpsert_ZeroPolicy(t *testing.T) {
	tests := []struct {
		name            string
		zeroMeansAbsent bool
		wantBid         float64
	}{
		{"zero is absent", true, 10},
		{"zero overwrites", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ZeroMeansAbsent = tt.zeroMeansAbsent
			s := NewStore(cfg)

			s.Upsert("AAPL", Update{Bid: f(10)}, t0)
			ch := s.Upsert("AAPL", Update{Bid: f(0)}, t0)
			if ch.Record.Bid != tt.wantBid {
				t.Errorf("Bid = %v, want %v", ch.Record.Bid, tt.wantBid)
			}
		})
	}
}

func TestUpsert_TimestampDefaultsToNow(t *testing.T) {
	s := NewStore(DefaultConfig())

	ch := s.Upsert("AAPL", Update{Last: f(1)}, t0)
	if !ch.Record.Timestamp.Equal(t0) {
		t.Errorf("Timestamp = %v, want %v", ch.Record.Timestamp, t0)
	}

	src := t0.Add(-time.Minute)
	ch = s.Upsert("AAPL", Update{Last: f(2), Timestamp: &src}, t0)
	if !ch.Record.Timestamp.Equal(src) {
		t.Errorf("Timestamp = %v, want source %v", ch.Record.Timestamp, src)
	}
}

func TestUpsert_HistoryBounded(t *testing.T) {
	s := NewStore(DefaultConfig())

	const n = 1500
	for i := 1; i <= n; i++ {
		s.Upsert("AAPL", Update{Last: f(float64(i))}, t0.Add(time.Duration(i)*time.Millisecond))
	}

	hist := s.History("AAPL")
	if len(hist) != 1000 {
		t.Fatalf("len(history) = %d, want 1000", len(hist))
	}
	if hist[0].Price != float64(n-999) {
		t.Errorf("oldest retained price = %v, want %v", hist[0].Price, n-999)
	}
	if hist[999].Price != n {
		t.Errorf("newest price = %v, want %v", hist[999].Price, n)
	}
}

func TestUpsert_DayRange(t *testing.T) {
	s := NewStore(DefaultConfig())

	prices := []float64{150, 155, 148, 152}
	var rec Record
	for _, p := range prices {
		rec = s.Upsert("AAPL", Update{Last: f(p)}, t0).Record
	}

	if rec.DayHigh != 155 {
		t.Errorf("DayHigh = %v, want 155", rec.DayHigh)
	}
	if rec.DayLow != 148 {
		t.Errorf("DayLow = %v, want 148", rec.DayLow)
	}
}

func TestUpsert_HistoryPoint(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.Upsert("AAPL", Update{Bid: f(149.9), Ask: f(150.1), Last: f(150)}, t0)

	hist := s.History("AAPL")
	want := model.PricePoint{Time: t0, Price: 150, Bid: 149.9, Ask: 150.1}
	if len(hist) != 1 || hist[0] != want {
		t.Errorf("History = %+v, want [%+v]", hist, want)
	}
}

func TestAdd(t *testing.T) {
	s := NewStore(DefaultConfig())

	rec, err := s.Add(" nvda ")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if rec.Symbol != "NVDA" || rec.Last != 100 || rec.DayHigh != 100 || rec.DayLow != 100 {
		t.Errorf("added record = %+v, want NVDA pinned at 100", rec)
	}

	_, err = s.Add("NVDA")
	if !errors.Is(err, ErrSymbolExists) {
		t.Errorf("duplicate Add error = %v, want ErrSymbolExists", err)
	}
	if !errors.Is(err, model.ErrPolicy) {
		t.Errorf("duplicate Add error = %v, want policy violation", err)
	}

	if _, err := s.Add("   "); !errors.Is(err, ErrEmptySymbol) {
		t.Errorf("empty Add error = %v, want ErrEmptySymbol", err)
	}
}

func TestRemove_Protected(t *testing.T) {
	s := NewStore(DefaultConfig())
	if err := s.Select("AAPL"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	before := s.Symbols()

	tests := []struct {
		symbol string
		want   error
	}{
		{"TEST", ErrSymbolProtected},
		{"test", ErrSymbolProtected},
		{"AAPL", ErrSymbolSelected},
		{"ZZZZ", ErrUnknownSymbol},
	}
	for _, tt := range tests {
		err := s.Remove(tt.symbol)
		if !errors.Is(err, tt.want) {
			t.Errorf("Remove(%q) error = %v, want %v", tt.symbol, err, tt.want)
		}
		if !errors.Is(err, model.ErrPolicy) {
			t.Errorf("Remove(%q) error = %v, want policy violation", tt.symbol, err)
		}
	}

	if len(s.Symbols()) != len(before) {
		t.Errorf("store changed after refused removals: %v -> %v", before, s.Symbols())
	}
}

func TestRemove_DropsHistory(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.Upsert("MSFT", Update{Last: f(400)}, t0)

	if err := s.Remove("msft"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if s.Has("MSFT") {
		t.Error("MSFT still tracked after Remove")
	}

	rec, _ := s.Add("MSFT")
	if rec.Points != 0 {
		t.Errorf("re-added symbol has %d history points, want 0", rec.Points)
	}
}

func TestSelect(t *testing.T) {
	s := NewStore(DefaultConfig())

	if err := s.Select("goog"); !IsUnknown(err) {
		t.Errorf("Select(unknown) error = %v, want unknown symbol", err)
	}
	if s.Selected() != "TEST" {
		t.Errorf("failed Select changed selection to %q", s.Selected())
	}

	if err := s.Select("tsla"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !s.IsSelected("TSLA") {
		t.Errorf("Selected() = %q, want TSLA", s.Selected())
	}
}

func TestPrices(t *testing.T) {
	s := NewStore(DefaultConfig())
	for _, p := range []float64{1, 2, 3, 4, 5} {
		s.Upsert("AAPL", Update{Last: f(p)}, t0)
	}

	got := s.Prices("AAPL", 3)
	want := []float64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("Prices() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Prices()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if s.Prices("NOPE", 3) != nil {
		t.Error("Prices() for unknown symbol should be nil")
	}
}
