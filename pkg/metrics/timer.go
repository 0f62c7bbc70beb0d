package metrics

import "time"

// Timer measures both the duration distribution and the rate of timed
// events. Durations are sampled in milliseconds through a decaying
// reservoir; rates come from the embedded meter.
type Timer struct {
	descriptor
	histogram *Histogram
	meter     *Meter
	clock     Clock
}

var _ Instrument = (*Timer)(nil)

// NewTimer creates an unregistered timer; prefer Registry.Timer.
func NewTimer(id ID, clock Clock) *Timer {
	if clock == nil {
		clock = SystemClock()
	}
	return &Timer{
		descriptor: newDescriptor(id),
		histogram:  NewHistogram(id, nil, clock),
		meter:      NewMeter(id, clock),
		clock:      clock,
	}
}

// Kind returns KindTimer.
func (t *Timer) Kind() Kind { return KindTimer }

// Update records one event of the given duration.
func (t *Timer) Update(d time.Duration) {
	if d < 0 {
		return
	}
	t.histogram.Update(float64(d) / float64(time.Millisecond))
	t.meter.Mark(1)
}

// UpdateSince records one event lasting from start until now.
func (t *Timer) UpdateSince(start time.Time) {
	t.Update(t.clock.Now().Sub(start))
}

// Time measures the execution of fn.
func (t *Timer) Time(fn func()) {
	start := t.clock.Now()
	fn()
	t.UpdateSince(start)
}

// Count returns the number of timed events.
func (t *Timer) Count() int64 { return t.meter.Count() }

// Snapshot returns the duration distribution in milliseconds.
func (t *Timer) Snapshot() *Snapshot { return t.histogram.Snapshot() }

// Rates returns the event rate figures.
func (t *Timer) Rates() MeterRates { return t.meter.Rates() }
