package market

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rickgao/marketdash/internal/model"
	"github.com/rickgao/marketdash/internal/ring"
)

// TestSymbol is always present and can never be removed.
const TestSymbol = "TEST"

// Default price of a symbol added by hand.
const defaultAddedPrice = 100

var (
	ErrEmptySymbol     = fmt.Errorf("%w: empty symbol", model.ErrPolicy)
	ErrSymbolExists    = fmt.Errorf("%w: symbol already exists", model.ErrPolicy)
	ErrSymbolProtected = fmt.Errorf("%w: symbol is protected", model.ErrPolicy)
	ErrSymbolSelected  = fmt.Errorf("%w: symbol is currently selected", model.ErrPolicy)
	ErrUnknownSymbol   = fmt.Errorf("%w: unknown symbol", model.ErrPolicy)
)

// Config holds SymbolStore configuration.
type Config struct {
	HistorySize int // Default: 1000

	// ZeroMeansAbsent treats an explicit 0 bid/ask/last/volume in an
	// update as absent, keeping the previous value.
	ZeroMeansAbsent bool // Default: true

	Symbols  []string // Seeded at construction
	Selected string   // Must be one of Symbols (TEST is added if missing)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HistorySize:     1000,
		ZeroMeansAbsent: true,
		Symbols:         []string{"TEST", "AAPL", "GOOGL", "MSFT", "AMZN", "TSLA"},
		Selected:        TestSymbol,
	}
}

// Update is a sparse market data update. Nil fields are absent.
type Update struct {
	Bid       *float64
	Ask       *float64
	Last      *float64
	Volume    *float64
	Timestamp *time.Time
}

// Record is a read-only snapshot of a symbol's state.
type Record struct {
	Symbol    string
	Bid       float64
	Ask       float64
	Last      float64
	Volume    float64
	Timestamp time.Time
	DayHigh   float64 // 0 until the first observed price
	DayLow    float64 // +Inf until the first observed price
	Points    int     // History length
}

// Change describes the effect of one Upsert.
type Change struct {
	Symbol   string
	Previous float64 // Last before the update
	Price    float64 // Last after the update
	Created  bool
	Record   Record
}

type record struct {
	Record
	history *ring.Bounded[model.PricePoint]
}

// Store owns all symbol records.
type Store struct {
	cfg      Config
	records  map[string]*record
	selected string
}

// NewStore creates a store seeded with cfg.Symbols. Seeded records start
// empty: zero prices, day high 0 and day low +Inf.
func NewStore(cfg Config) *Store {
	if cfg.HistorySize < 1 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	s := &Store{
		cfg:     cfg,
		records: make(map[string]*record),
	}

	s.records[TestSymbol] = s.newRecord(TestSymbol, 0)
	for _, sym := range cfg.Symbols {
		sym = Normalize(sym)
		if sym == "" || s.records[sym] != nil {
			continue
		}
		s.records[sym] = s.newRecord(sym, 0)
	}

	s.selected = TestSymbol
	if sel := Normalize(cfg.Selected); s.records[sel] != nil {
		s.selected = sel
	}
	return s
}

// Normalize returns the canonical form of a ticker.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (s *Store) newRecord(symbol string, price float64) *record {
	r := &record{
		Record: Record{
			Symbol:  symbol,
			DayHigh: 0,
			DayLow:  math.Inf(1),
		},
		history: ring.NewBounded[model.PricePoint](s.cfg.HistorySize),
	}
	if price > 0 {
		r.Last = price
		r.DayHigh = price
		r.DayLow = price
	}
	return r
}

// present applies the zero-means-absent policy to an update field.
func (s *Store) present(v *float64) bool {
	if v == nil {
		return false
	}
	return !(s.cfg.ZeroMeansAbsent && *v == 0)
}

// Upsert merges an update into the symbol's record, creating it if
// needed, and appends a history point at now.
func (s *Store) Upsert(symbol string, u Update, now time.Time) Change {
	symbol = Normalize(symbol)

	r, ok := s.records[symbol]
	if !ok {
		r = s.newRecord(symbol, 0)
		s.records[symbol] = r
	}
	previous := r.Last

	if s.present(u.Bid) {
		r.Bid = *u.Bid
	}
	if s.present(u.Ask) {
		r.Ask = *u.Ask
	}
	if s.present(u.Last) {
		r.Last = *u.Last
	}
	if s.present(u.Volume) {
		r.Volume = *u.Volume
	}
	if u.Timestamp != nil {
		r.Timestamp = *u.Timestamp
	} else {
		r.Timestamp = now
	}

	price := r.Last
	r.history.Push(model.PricePoint{Time: now, Price: price, Bid: r.Bid, Ask: r.Ask})
	r.DayHigh = max(r.DayHigh, price)
	r.DayLow = min(r.DayLow, price)

	return Change{
		Symbol:   symbol,
		Previous: previous,
		Price:    price,
		Created:  !ok,
		Record:   r.snapshot(),
	}
}

func (r *record) snapshot() Record {
	out := r.Record
	out.Points = r.history.Len()
	return out
}

// Add creates a symbol with last price 100 and the day range pinned to 100.
func (s *Store) Add(symbol string) (Record, error) {
	symbol = Normalize(symbol)
	if symbol == "" {
		return Record{}, ErrEmptySymbol
	}
	if _, ok := s.records[symbol]; ok {
		return Record{}, fmt.Errorf("%w: %s", ErrSymbolExists, symbol)
	}
	r := s.newRecord(symbol, defaultAddedPrice)
	s.records[symbol] = r
	return r.snapshot(), nil
}

// Remove deletes a symbol and its history. TEST and the selected symbol
// are refused.
func (s *Store) Remove(symbol string) error {
	symbol = Normalize(symbol)
	switch {
	case symbol == "":
		return ErrEmptySymbol
	case symbol == TestSymbol:
		return fmt.Errorf("%w: %s", ErrSymbolProtected, symbol)
	case symbol == s.selected:
		return fmt.Errorf("%w: %s", ErrSymbolSelected, symbol)
	}
	if _, ok := s.records[symbol]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	delete(s.records, symbol)
	return nil
}

// Select makes an existing symbol the selected one.
func (s *Store) Select(symbol string) error {
	symbol = Normalize(symbol)
	if _, ok := s.records[symbol]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	s.selected = symbol
	return nil
}

// Selected returns the currently selected symbol.
func (s *Store) Selected() string {
	return s.selected
}

// IsSelected reports whether symbol is the selected one.
func (s *Store) IsSelected(symbol string) bool {
	return Normalize(symbol) == s.selected
}

// Has reports whether the symbol is tracked.
func (s *Store) Has(symbol string) bool {
	_, ok := s.records[Normalize(symbol)]
	return ok
}

// Get returns a snapshot of the symbol's record.
func (s *Store) Get(symbol string) (Record, bool) {
	r, ok := s.records[Normalize(symbol)]
	if !ok {
		return Record{}, false
	}
	return r.snapshot(), true
}

// Symbols returns all tracked tickers in sorted order.
func (s *Store) Symbols() []string {
	out := make([]string, 0, len(s.records))
	for sym := range s.records {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}

// List returns snapshots of all records, sorted by ticker.
func (s *Store) List() []Record {
	out := make([]Record, 0, len(s.records))
	for _, sym := range s.Symbols() {
		out = append(out, s.records[sym].snapshot())
	}
	return out
}

// Len returns the number of tracked symbols.
func (s *Store) Len() int {
	return len(s.records)
}

// History copies the symbol's price history, oldest first.
func (s *Store) History(symbol string) []model.PricePoint {
	r, ok := s.records[Normalize(symbol)]
	if !ok {
		return nil
	}
	return r.history.Slice()
}

// Prices returns the last n history prices, oldest first.
func (s *Store) Prices(symbol string, n int) []float64 {
	r, ok := s.records[Normalize(symbol)]
	if !ok {
		return nil
	}
	points := r.history.Last(n)
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}

// IsUnknown reports whether err is an unknown-symbol error.
func IsUnknown(err error) bool {
	return errors.Is(err, ErrUnknownSymbol)
}
