package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/marketdash/internal/metrics"
	"github.com/rickgao/marketdash/internal/model"
	"github.com/rickgao/marketdash/internal/ring"
)

const insertTick = `
	INSERT INTO ticks (exchange_ts, received_at, symbol, bid, ask, last_price, volume)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (symbol, exchange_ts) DO NOTHING`

// Batcher sends a pgx batch. *pgxpool.Pool implements it.
type Batcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config configures a TickWriter.
type Config struct {
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max wait for a partial batch
	BufferSize    int           // Max queued ticks before offers are refused
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: time.Second,
		BufferSize:    10000,
	}
}

// Stats holds writer counters.
type Stats struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	Dropped   int64 // Offers refused by a full or closed queue
}

type tickRow struct {
	ExchangeTS time.Time
	ReceivedAt time.Time
	Symbol     string
	Bid        float64
	Ask        float64
	Last       float64
	Volume     float64
}

// TickWriter archives ticks to the ticks table.
type TickWriter struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	input *ring.Queue[model.Tick]
	db    Batcher

	// Batching
	batch   []tickRow
	batchMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	statsMu sync.Mutex
	stats   Stats
}

// NewTickWriter creates a TickWriter. mx may be nil.
func NewTickWriter(cfg Config, db Batcher, logger *slog.Logger, mx *metrics.Metrics) *TickWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	initial := min(cfg.BatchSize, max(cfg.BufferSize, 1))
	return &TickWriter{
		cfg:     cfg,
		logger:  logger.With("component", "tick_writer"),
		metrics: mx,
		input:   ring.NewQueue[model.Tick](initial, cfg.BufferSize),
		db:      db,
		batch:   make([]tickRow, 0, cfg.BatchSize),
		done:    make(chan struct{}),
	}
}

// Offer queues a tick without blocking. It returns false when the queue is
// full or the writer has stopped.
func (w *TickWriter) Offer(t model.Tick) bool {
	if w.input.Offer(t) {
		return true
	}
	w.statsMu.Lock()
	w.stats.Dropped++
	w.statsMu.Unlock()
	return false
}

// Start begins consuming ticks and writing to the database.
func (w *TickWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("tick writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
		"buffer_size", w.cfg.BufferSize,
	)
	return nil
}

// Stop refuses new ticks, drains the queue and flushes what is left. It
// returns ctx.Err() if the drain does not finish in time. Later calls only
// wait for the drain again.
func (w *TickWriter) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() {
		w.logger.Info("stopping tick writer")
		w.input.Close()
		close(w.done)
	})

	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()

	var err error
	select {
	case <-finished:
		w.flush()
		w.logger.Info("tick writer stopped")
	case <-ctx.Done():
		w.logger.Warn("tick writer stop timed out", "queued", w.input.Len())
		err = ctx.Err()
	}

	if w.cancel != nil {
		w.cancel()
	}
	return err
}

// Stats returns current counters.
func (w *TickWriter) Stats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

// consumeLoop moves ticks from the queue into the batch until the queue is
// closed and empty.
func (w *TickWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		t, ok := w.input.Take()
		if !ok {
			return
		}
		w.handleTick(t)
	}
}

// flushLoop periodically flushes the batch.
func (w *TickWriter) flushLoop() {
	defer w.wg.Done()

	if w.cfg.FlushInterval <= 0 {
		return
	}
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

// handleTick transforms and adds a tick to the batch.
func (w *TickWriter) handleTick(t model.Tick) {
	row := transform(t)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform converts a tick to a row. A missing source timestamp falls back
// to the receive time.
func transform(t model.Tick) tickRow {
	ts := t.ExchangeTS
	if ts.IsZero() {
		ts = t.ReceivedAt
	}
	return tickRow{
		ExchangeTS: ts.UTC(),
		ReceivedAt: t.ReceivedAt.UTC(),
		Symbol:     t.Symbol,
		Bid:        t.Bid,
		Ask:        t.Ask,
		Last:       t.Last,
		Volume:     t.Volume,
	}
}

// flush writes the current batch to the database.
func (w *TickWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]tickRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()
	conflicts, err := w.batchInsert(batch)
	elapsed := time.Since(start)
	w.metrics.RecordArchiveFlush(len(batch)-conflicts, elapsed.Seconds(), err)

	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	if err != nil {
		w.stats.Errors++
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		return
	}

	w.stats.Inserts += int64(len(batch) - conflicts)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++

	w.logger.Debug("flushed ticks",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", elapsed,
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *TickWriter) batchInsert(rows []tickRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertTick, r.ExchangeTS, r.ReceivedAt, r.Symbol, r.Bid, r.Ask, r.Last, r.Volume)
	}

	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
