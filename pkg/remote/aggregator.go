package remote

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/metrika/pkg/metrics"
	"github.com/vshulcz/metrika/pkg/reporting"
)

// AggregatorConfig configures the coordinator-side merge.
type AggregatorConfig struct {
	// ExpectedWorkers is the number of distinct workers per tick; a
	// context flushes as soon as that many have contributed. Zero means
	// flush on timeout only.
	ExpectedWorkers int
	// FlushTimeout bounds how long a pending context waits for stragglers.
	FlushTimeout time.Duration
	// Clock defaults to the system clock.
	Clock metrics.Clock
	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

// pendingContext accumulates worker contributions for one reporting
// context until it is flushed.
type pendingContext struct {
	set     RowSet
	workers map[string]struct{}
	date    time.Time
	opened  time.Time
}

// Aggregator merges interprocess report messages and replays the merged
// batches through the normal sink pipeline. Each message is merged exactly
// once, tracked by its (worker, seq) identity; late messages for an
// already-flushed context are carried into the next flush, never dropped
// and never double-counted.
type Aggregator struct {
	cfg     AggregatorConfig
	handler reporting.Handler

	mu      sync.Mutex
	pending map[string]*pendingContext
	seen    map[string]map[uint64]time.Time
	flushed map[string]time.Time
	carry   []reporting.Row
}

// NewAggregator creates an aggregator that flushes merged batches into
// handler.
func NewAggregator(handler reporting.Handler, cfg AggregatorConfig) *Aggregator {
	if cfg.Clock == nil {
		cfg.Clock = metrics.SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 30 * time.Second
	}
	return &Aggregator{
		cfg:     cfg,
		handler: handler,
		pending: make(map[string]*pendingContext),
		seen:    make(map[string]map[uint64]time.Time),
		flushed: make(map[string]time.Time),
	}
}

// Receive merges one message. Foreign or malformed messages are dropped
// with an error returned for logging; the coordinator never crashes on
// them.
func (a *Aggregator) Receive(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	now := a.cfg.Clock.Now()

	a.mu.Lock()
	if a.duplicateLocked(msg, now) {
		a.mu.Unlock()
		a.cfg.Logger.Info("duplicate report dropped",
			zap.String("worker", msg.Worker), zap.Uint64("seq", msg.Seq))
		return nil
	}

	if _, done := a.flushed[msg.Ctx]; done {
		// Late for an already-flushed tick: carry into the next flush.
		a.carry = append(a.carry, msg.Metrics.Flatten()...)
		a.mu.Unlock()
		a.cfg.Logger.Info("late report carried over",
			zap.String("ctx", msg.Ctx), zap.String("worker", msg.Worker))
		return nil
	}

	p, ok := a.pending[msg.Ctx]
	if !ok {
		p = &pendingContext{workers: make(map[string]struct{}), date: msg.Date, opened: now}
		a.pending[msg.Ctx] = p
	}
	p.workers[msg.Worker] = struct{}{}
	mergeRowSet(&p.set, msg.Metrics)

	var batch []reporting.Row
	if a.cfg.ExpectedWorkers > 0 && len(p.workers) >= a.cfg.ExpectedWorkers {
		batch = a.takeLocked(msg.Ctx, p)
	}
	a.mu.Unlock()

	if batch != nil {
		a.deliver(ctx, msg.Ctx, batch)
	}
	return nil
}

// FlushStale flushes pending contexts older than the flush timeout and
// prunes dedup bookkeeping. Call it periodically; Run does.
func (a *Aggregator) FlushStale(ctx context.Context, now time.Time) {
	type flush struct {
		key  string
		rows []reporting.Row
	}
	var flushes []flush

	a.mu.Lock()
	for key, p := range a.pending {
		if now.Sub(p.opened) >= a.cfg.FlushTimeout {
			flushes = append(flushes, flush{key: key, rows: a.takeLocked(key, p)})
		}
	}
	a.pruneLocked(now)
	a.mu.Unlock()

	for _, f := range flushes {
		a.deliver(ctx, f.key, f.rows)
	}
}

// Run flushes stale contexts on a timer until ctx is done.
func (a *Aggregator) Run(ctx context.Context) {
	interval := a.cfg.FlushTimeout / 2
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.FlushStale(ctx, a.cfg.Clock.Now())
		}
	}
}

// takeLocked closes a pending context and returns the rows to deliver,
// prepending any carried-over late rows.
func (a *Aggregator) takeLocked(key string, p *pendingContext) []reporting.Row {
	delete(a.pending, key)
	a.flushed[key] = a.cfg.Clock.Now()
	rows := a.carry
	a.carry = nil
	return append(rows, p.set.Flatten()...)
}

func (a *Aggregator) deliver(ctx context.Context, key string, rows []reporting.Row) {
	if len(rows) == 0 {
		return
	}
	if err := a.handler.HandleBatch(ctx, rows); err != nil {
		a.cfg.Logger.Warn("aggregated batch handler failed",
			zap.String("ctx", key), zap.Int("rows", len(rows)), zap.Error(err))
	}
}

// duplicateLocked records the message identity and reports whether it was
// already merged.
func (a *Aggregator) duplicateLocked(msg Message, now time.Time) bool {
	byWorker, ok := a.seen[msg.Worker]
	if !ok {
		byWorker = make(map[uint64]time.Time)
		a.seen[msg.Worker] = byWorker
	}
	if _, dup := byWorker[msg.Seq]; dup {
		return true
	}
	byWorker[msg.Seq] = now
	return false
}

// pruneLocked drops dedup and flush records old enough that no retry can
// still reference them.
func (a *Aggregator) pruneLocked(now time.Time) {
	horizon := 10 * a.cfg.FlushTimeout
	for worker, seqs := range a.seen {
		for seq, at := range seqs {
			if now.Sub(at) > horizon {
				delete(seqs, seq)
			}
		}
		if len(seqs) == 0 {
			delete(a.seen, worker)
		}
	}
	for key, at := range a.flushed {
		if now.Sub(at) > horizon {
			delete(a.flushed, key)
		}
	}
}

func mergeRowSet(dst *RowSet, src RowSet) {
	dst.MonotoneCounters = append(dst.MonotoneCounters, src.MonotoneCounters...)
	dst.Counters = append(dst.Counters, src.Counters...)
	dst.Gauges = append(dst.Gauges, src.Gauges...)
	dst.Histograms = append(dst.Histograms, src.Histograms...)
	dst.Meters = append(dst.Meters, src.Meters...)
	dst.Timers = append(dst.Timers, src.Timers...)
}
