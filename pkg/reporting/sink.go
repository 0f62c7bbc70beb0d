package reporting

import (
	"context"
	"time"

	"github.com/vshulcz/metrika/pkg/metrics"
)

// Context carries per-tick report context into formatting functions.
type Context struct {
	// Now is the single timestamp captured for the whole tick.
	Now time.Time
	// Tags are the reporter-level common tags.
	Tags map[string]string
	// ReportingContext names the reporter run, e.g. for sink grouping.
	ReportingContext string
}

// Handler consumes formatted batches. Implementations must treat a batch
// as fire-and-forget: a returned error is logged by the reporter and never
// aborts the tick.
type Handler interface {
	HandleBatch(ctx context.Context, rows []Row) error
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(ctx context.Context, rows []Row) error

// HandleBatch executes the wrapped function.
func (f HandlerFunc) HandleBatch(ctx context.Context, rows []Row) error {
	if f == nil {
		return nil
	}
	return f(ctx, rows)
}

// Preparer is implemented by handlers needing one-time setup at reporter
// start, e.g. a CSV sink writing its header from the registered metrics.
type Preparer interface {
	Prepare(ctx context.Context, ids []metrics.ID) error
}

// Formatter customizes how instruments become rows. Any nil function falls
// back to the default field set for that kind; this is the only part the
// external sink customizes.
type Formatter struct {
	MonotoneCounter func(*metrics.MonotoneCounter, Context) (Row, error)
	Counter         func(*metrics.Counter, Context) (Row, error)
	Gauge           func(*metrics.Gauge, Context) (Row, error)
	Histogram       func(*metrics.Histogram, Context) (Row, error)
	Meter           func(*metrics.Meter, Context) (Row, error)
	Timer           func(*metrics.Timer, Context) (Row, error)
}

// mergeTags unions common and instrument tags; instrument tags win on key
// collision.
func mergeTags(common, own map[string]string) map[string]string {
	if len(common) == 0 && len(own) == 0 {
		return nil
	}
	out := make(map[string]string, len(common)+len(own))
	for k, v := range common {
		out[k] = v
	}
	for k, v := range own {
		out[k] = v
	}
	return out
}

func baseRow(in metrics.Instrument, fctx Context) Row {
	id := in.ID()
	return Row{
		Name:   id.Name,
		Group:  id.Group,
		Kind:   in.Kind().String(),
		Tags:   mergeTags(fctx.Tags, id.Tags()),
		Meta:   in.Meta(),
		Time:   fctx.Now,
		Fields: make(map[string]float64, 16),
	}
}

func defaultCounterRow(c *metrics.Counter, fctx Context) (Row, error) {
	row := baseRow(c, fctx)
	row.Fields[FieldValue] = float64(c.Value())
	return row, nil
}

func defaultMonotoneCounterRow(c *metrics.MonotoneCounter, fctx Context) (Row, error) {
	row := baseRow(c, fctx)
	row.Fields[FieldValue] = float64(c.Value())
	return row, nil
}

func defaultGaugeRow(g *metrics.Gauge, fctx Context) (Row, error) {
	row := baseRow(g, fctx)
	row.Fields[FieldValue] = g.Value()
	return row, nil
}

func snapshotFields(row Row, snap *metrics.Snapshot) {
	qs := snap.Quantiles(0.5, 0.75, 0.95, 0.99, 0.999)
	row.Fields[FieldMin] = snap.Min()
	row.Fields[FieldMax] = snap.Max()
	row.Fields[FieldMean] = snap.Mean()
	row.Fields[FieldStdDev] = snap.StdDev()
	row.Fields[FieldP50] = qs[0]
	row.Fields[FieldP75] = qs[1]
	row.Fields[FieldP95] = qs[2]
	row.Fields[FieldP99] = qs[3]
	row.Fields[FieldP999] = qs[4]
}

func defaultHistogramRow(h *metrics.Histogram, fctx Context) (Row, error) {
	row := baseRow(h, fctx)
	row.Fields[FieldCount] = float64(h.Count())
	snapshotFields(row, h.Snapshot())
	return row, nil
}

func rateFields(row Row, rates metrics.MeterRates) {
	row.Fields[FieldCount] = float64(rates.Count)
	row.Fields[FieldRate1] = rates.Rate1
	row.Fields[FieldRate5] = rates.Rate5
	row.Fields[FieldRate15] = rates.Rate15
	row.Fields[FieldRateMean] = rates.RateMean
}

func defaultMeterRow(m *metrics.Meter, fctx Context) (Row, error) {
	row := baseRow(m, fctx)
	rateFields(row, m.Rates())
	return row, nil
}

func defaultTimerRow(t *metrics.Timer, fctx Context) (Row, error) {
	row := baseRow(t, fctx)
	rateFields(row, t.Rates())
	snapshotFields(row, t.Snapshot())
	return row, nil
}
