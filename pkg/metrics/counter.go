package metrics

import "sync/atomic"

// Counter is an integer value moved by positive or negative deltas.
type Counter struct {
	descriptor
	value atomic.Int64
}

var _ Instrument = (*Counter)(nil)

// NewCounter creates an unregistered counter; prefer Registry.Counter.
func NewCounter(id ID) *Counter {
	return &Counter{descriptor: newDescriptor(id)}
}

// Kind returns KindCounter.
func (c *Counter) Kind() Kind { return KindCounter }

// Inc moves the counter by delta, which may be negative.
func (c *Counter) Inc(delta int64) { c.value.Add(delta) }

// Dec decrements the counter by delta.
func (c *Counter) Dec(delta int64) { c.value.Add(-delta) }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.value.Load() }

// MonotoneCounter is a counter that only moves forward; negative increments
// are rejected without changing state.
type MonotoneCounter struct {
	descriptor
	value atomic.Int64
}

var _ Instrument = (*MonotoneCounter)(nil)

// NewMonotoneCounter creates an unregistered monotone counter; prefer
// Registry.MonotoneCounter.
func NewMonotoneCounter(id ID) *MonotoneCounter {
	return &MonotoneCounter{descriptor: newDescriptor(id)}
}

// Kind returns KindMonotoneCounter.
func (c *MonotoneCounter) Kind() Kind { return KindMonotoneCounter }

// Inc advances the counter by delta when delta is non-negative.
func (c *MonotoneCounter) Inc(delta int64) {
	if delta < 0 {
		return
	}
	c.value.Add(delta)
}

// Value returns the current count.
func (c *MonotoneCounter) Value() int64 { return c.value.Load() }
