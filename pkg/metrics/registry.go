// Package metrics implements the measurement engine: instrument kinds,
// bounded reservoir sampling, moving-average rate calculators and the
// concurrent registry that owns instrument lifecycle.
package metrics

import (
	"errors"
	"sync"
)

var (
	// ErrKindMismatch is returned when an identity is already registered
	// with a different instrument kind.
	ErrKindMismatch = errors.New("instrument kind mismatch")
	// ErrNotFound is returned when the requested instrument does not exist.
	ErrNotFound = errors.New("instrument not found")
)

// Registry is a concurrent mapping from metric identity to instrument. It
// is the only creator and destroyer of instrument instances: accessors are
// get-or-create, so two callers asking for the same identity share one
// instrument.
type Registry struct {
	mu          sync.RWMutex
	instruments map[string]Instrument
	clock       Clock
}

// NewRegistry creates a registry; a nil clock selects the system clock.
func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = SystemClock()
	}
	return &Registry{
		instruments: make(map[string]Instrument),
		clock:       clock,
	}
}

// Clock returns the registry's time source; reporters reuse it by default.
func (r *Registry) Clock() Clock { return r.clock }

// getOrCreate returns the instrument at id, building it under the lock
// when absent. The build functions are trivial constructors, so the
// exclusive section is no wider than the map insert itself.
func (r *Registry) getOrCreate(id ID, kind Kind, build func() Instrument) (Instrument, error) {
	key := id.Key()

	r.mu.RLock()
	existing, ok := r.instruments[key]
	r.mu.RUnlock()
	if !ok {
		r.mu.Lock()
		existing, ok = r.instruments[key]
		if !ok {
			existing = build()
			r.instruments[key] = existing
		}
		r.mu.Unlock()
	}

	if existing.Kind() != kind {
		return nil, ErrKindMismatch
	}
	return existing, nil
}

// Counter returns the counter at id, creating it when absent.
func (r *Registry) Counter(id ID) (*Counter, error) {
	in, err := r.getOrCreate(id, KindCounter, func() Instrument { return NewCounter(id) })
	if err != nil {
		return nil, err
	}
	c, ok := in.(*Counter)
	if !ok {
		return nil, ErrKindMismatch
	}
	return c, nil
}

// MonotoneCounter returns the monotone counter at id, creating it when
// absent.
func (r *Registry) MonotoneCounter(id ID) (*MonotoneCounter, error) {
	in, err := r.getOrCreate(id, KindMonotoneCounter, func() Instrument { return NewMonotoneCounter(id) })
	if err != nil {
		return nil, err
	}
	c, ok := in.(*MonotoneCounter)
	if !ok {
		return nil, ErrKindMismatch
	}
	return c, nil
}

// Gauge returns the gauge at id, creating it with the given producer when
// absent. The producer of an existing gauge is kept.
func (r *Registry) Gauge(id ID, fn func() float64) (*Gauge, error) {
	in, err := r.getOrCreate(id, KindGauge, func() Instrument { return NewGauge(id, fn) })
	if err != nil {
		return nil, err
	}
	c, ok := in.(*Gauge)
	if !ok {
		return nil, ErrKindMismatch
	}
	return c, nil
}

// Histogram returns the histogram at id, creating it over a decaying
// reservoir when absent.
func (r *Registry) Histogram(id ID) (*Histogram, error) {
	in, err := r.getOrCreate(id, KindHistogram, func() Instrument { return NewHistogram(id, nil, r.clock) })
	if err != nil {
		return nil, err
	}
	c, ok := in.(*Histogram)
	if !ok {
		return nil, ErrKindMismatch
	}
	return c, nil
}

// HistogramWith returns the histogram at id, creating it over the supplied
// reservoir when absent.
func (r *Registry) HistogramWith(id ID, res Reservoir) (*Histogram, error) {
	in, err := r.getOrCreate(id, KindHistogram, func() Instrument { return NewHistogram(id, res, r.clock) })
	if err != nil {
		return nil, err
	}
	c, ok := in.(*Histogram)
	if !ok {
		return nil, ErrKindMismatch
	}
	return c, nil
}

// Meter returns the meter at id, creating it when absent.
func (r *Registry) Meter(id ID) (*Meter, error) {
	in, err := r.getOrCreate(id, KindMeter, func() Instrument { return NewMeter(id, r.clock) })
	if err != nil {
		return nil, err
	}
	c, ok := in.(*Meter)
	if !ok {
		return nil, ErrKindMismatch
	}
	return c, nil
}

// Timer returns the timer at id, creating it when absent.
func (r *Registry) Timer(id ID) (*Timer, error) {
	in, err := r.getOrCreate(id, KindTimer, func() Instrument { return NewTimer(id, r.clock) })
	if err != nil {
		return nil, err
	}
	c, ok := in.(*Timer)
	if !ok {
		return nil, ErrKindMismatch
	}
	return c, nil
}

// Remove deletes the instrument at id; removing an absent identity is a
// no-op.
func (r *Registry) Remove(id ID) {
	r.mu.Lock()
	delete(r.instruments, id.Key())
	r.mu.Unlock()
}

// List returns a point-in-time slice of the instruments of one kind.
// Registrations after the call are not reflected in the returned slice.
func (r *Registry) List(kind Kind) []Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Instrument
	for _, in := range r.instruments {
		if in.Kind() == kind {
			out = append(out, in)
		}
	}
	return out
}

// Size returns the number of registered instruments.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instruments)
}
