package metrics

import "sync/atomic"

// Histogram tracks the distribution of observed values through a bounded
// reservoir.
type Histogram struct {
	descriptor
	reservoir Reservoir
	count     atomic.Int64
	clock     Clock
}

var _ Instrument = (*Histogram)(nil)

// NewHistogram creates an unregistered histogram over the given reservoir;
// prefer Registry.Histogram. A nil reservoir selects an exponentially
// decaying one, a nil clock the system clock.
func NewHistogram(id ID, r Reservoir, clock Clock) *Histogram {
	if clock == nil {
		clock = SystemClock()
	}
	if r == nil {
		r = NewExpDecayReservoir(DefaultReservoirSize, DefaultExpDecayAlpha, clock)
	}
	return &Histogram{descriptor: newDescriptor(id), reservoir: r, clock: clock}
}

// Kind returns KindHistogram.
func (h *Histogram) Kind() Kind { return KindHistogram }

// Update offers a value to the reservoir. Non-finite values are rejected
// without changing state.
func (h *Histogram) Update(v float64) {
	if !finite(v) {
		return
	}
	h.count.Add(1)
	h.reservoir.Update(v, h.clock.Now())
}

// Count returns the total number of accepted updates, which can exceed the
// reservoir capacity.
func (h *Histogram) Count() int64 { return h.count.Load() }

// Snapshot returns the current sample distribution.
func (h *Histogram) Snapshot() *Snapshot { return h.reservoir.Snapshot() }
