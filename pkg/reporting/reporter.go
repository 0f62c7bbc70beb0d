package reporting

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/metrika/pkg/metrics"
)

const (
	defaultInterval     = 10 * time.Second
	defaultMinReporting = time.Minute
)

// Options configures a Reporter.
type Options struct {
	Interval            time.Duration
	MinReportingTimeout time.Duration
	Tags                map[string]string
	Clock               metrics.Clock
	Scheduler           Scheduler
	Logger              *zap.Logger
	Formatter           Formatter
	ReportingContext    string
}

// Option mutates Options.
type Option func(*Options)

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) Option {
	return func(o *Options) { o.Interval = d }
}

// WithMinReportingTimeout bounds how stale an unchanged metric may get
// before it is re-reported.
func WithMinReportingTimeout(d time.Duration) Option {
	return func(o *Options) { o.MinReportingTimeout = d }
}

// WithTags sets the reporter-level common tags.
func WithTags(tags map[string]string) Option {
	return func(o *Options) { o.Tags = tags }
}

// WithClock injects the time source.
func WithClock(c metrics.Clock) Option {
	return func(o *Options) { o.Clock = c }
}

// WithScheduler injects the timer provider.
func WithScheduler(s Scheduler) Option {
	return func(o *Options) { o.Scheduler = s }
}

// WithLogger injects the reporter's logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithFormatter overrides per-variant formatting functions.
func WithFormatter(f Formatter) Option {
	return func(o *Options) { o.Formatter = f }
}

// WithReportingContext names the reporter run for sinks and aggregation.
func WithReportingContext(rc string) Option {
	return func(o *Options) { o.ReportingContext = rc }
}

// Reporter is the scheduled reporter base. It polls its registries on a
// timer, applies the dedup/timeout policy per metric and hands accepted
// batches to the handler. Stopped → Running → Stopped; Start while running
// and Stop while stopped are no-ops.
type Reporter struct {
	registries []*metrics.Registry
	handler    Handler
	opts       Options

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	dedup   *dedupState
}

// New creates a reporter over one or more registries.
func New(handler Handler, registries []*metrics.Registry, opts ...Option) *Reporter {
	o := Options{
		Interval:            defaultInterval,
		MinReportingTimeout: defaultMinReporting,
		Scheduler:           DefaultScheduler(),
	}
	for _, f := range opts {
		f(&o)
	}
	if o.Clock == nil {
		if len(registries) > 0 {
			o.Clock = registries[0].Clock()
		} else {
			o.Clock = metrics.SystemClock()
		}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Interval <= 0 {
		o.Interval = defaultInterval
	}
	if o.MinReportingTimeout <= 0 {
		o.MinReportingTimeout = defaultMinReporting
	}
	return &Reporter{
		registries: registries,
		handler:    handler,
		opts:       o,
		dedup:      newDedupState(o.MinReportingTimeout),
	}
}

// Start arms the recurring timer. The first call performs one-time sink
// setup through the handler's Prepare hook when present.
func (r *Reporter) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	stop, done := r.stop, r.done
	r.mu.Unlock()

	r.prepare()

	go func() {
		defer close(done)
		ticks, disarm := r.opts.Scheduler.Schedule(r.opts.Interval)
		defer disarm()
		for {
			select {
			case <-stop:
				return
			case <-ticks:
				r.tick(r.opts.Clock.Now())
			}
		}
	}()
}

// Stop disarms the timer. An in-flight tick finishes; only future ticks
// are prevented.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stop, done := r.stop, r.done
	r.mu.Unlock()

	close(stop)
	<-done
}

func (r *Reporter) prepare() {
	p, ok := r.handler.(Preparer)
	if !ok {
		return
	}
	var ids []metrics.ID
	for _, reg := range r.registries {
		for _, kind := range metrics.ReportOrder {
			for _, in := range reg.List(kind) {
				ids = append(ids, in.ID())
			}
		}
	}
	if err := p.Prepare(context.Background(), ids); err != nil {
		r.opts.Logger.Warn("sink prepare failed", zap.Error(err))
	}
}

// tick runs one report cycle against a single captured now, so every
// dedup-timeout comparison in the batch is consistent.
func (r *Reporter) tick(now time.Time) {
	fctx := Context{Now: now, Tags: r.opts.Tags, ReportingContext: r.opts.ReportingContext}
	seen := make(map[string]struct{})
	var batch []Row

	for _, reg := range r.registries {
		for _, kind := range metrics.ReportOrder {
			for _, in := range reg.List(kind) {
				key := in.ID().Key()
				seen[key] = struct{}{}

				row, err := r.format(in, fctx)
				if err != nil {
					r.opts.Logger.Warn("format failed",
						zap.String("metric", key), zap.Error(err))
					continue
				}
				if hasNaN(row.Fields) {
					continue // filtered, not a failure
				}
				if !r.dedup.accept(key, row.Fields, now) {
					continue
				}
				batch = append(batch, row)
			}
		}
	}

	r.dedup.prune(seen)

	if len(batch) == 0 {
		return
	}
	if err := r.handler.HandleBatch(context.Background(), batch); err != nil {
		r.opts.Logger.Warn("batch handler failed",
			zap.Int("rows", len(batch)), zap.Error(err))
	}
}

// format dispatches to the per-variant formatting function, falling back
// to the defaults. The match over kinds is exhaustive.
func (r *Reporter) format(in metrics.Instrument, fctx Context) (Row, error) {
	f := r.opts.Formatter
	switch v := in.(type) {
	case *metrics.MonotoneCounter:
		if f.MonotoneCounter != nil {
			return f.MonotoneCounter(v, fctx)
		}
		return defaultMonotoneCounterRow(v, fctx)
	case *metrics.Counter:
		if f.Counter != nil {
			return f.Counter(v, fctx)
		}
		return defaultCounterRow(v, fctx)
	case *metrics.Gauge:
		if f.Gauge != nil {
			return f.Gauge(v, fctx)
		}
		return defaultGaugeRow(v, fctx)
	case *metrics.Histogram:
		if f.Histogram != nil {
			return f.Histogram(v, fctx)
		}
		return defaultHistogramRow(v, fctx)
	case *metrics.Meter:
		if f.Meter != nil {
			return f.Meter(v, fctx)
		}
		return defaultMeterRow(v, fctx)
	case *metrics.Timer:
		if f.Timer != nil {
			return f.Timer(v, fctx)
		}
		return defaultTimerRow(v, fctx)
	default:
		return Row{}, metrics.ErrKindMismatch
	}
}

func hasNaN(fields map[string]float64) bool {
	for _, v := range fields {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
