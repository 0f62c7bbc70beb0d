package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// EWMATickInterval is the fixed interval at which rate calculators fold
// their accumulator into the moving average.
const EWMATickInterval = 5 * time.Second

// EWMA is an exponentially-weighted moving average of an event rate.
// Mark only touches an atomic accumulator and never blocks tick logic;
// ticks are driven by the owning Meter/Timer's schedule. Before the first
// tick the raw instantaneous rate is reported, so a single early mark does
// not read back as zero.
type EWMA struct {
	uncounted atomic.Int64
	alpha     float64

	mu     sync.Mutex
	rate   float64 // events per second
	warmed bool
}

// NewEWMA creates a calculator for the given averaging window, e.g. one,
// five or fifteen minutes.
func NewEWMA(window time.Duration) *EWMA {
	return &EWMA{alpha: 1 - math.Exp(-EWMATickInterval.Seconds()/window.Seconds())}
}

// Mark records n events.
func (e *EWMA) Mark(n int64) {
	e.uncounted.Add(n)
}

// Tick folds the accumulated events into the moving average for one tick
// interval and resets the accumulator.
func (e *EWMA) Tick() {
	instant := float64(e.uncounted.Swap(0)) / EWMATickInterval.Seconds()
	e.mu.Lock()
	if e.warmed {
		e.rate += e.alpha * (instant - e.rate)
	} else {
		e.rate = instant
		e.warmed = true
	}
	e.mu.Unlock()
}

// Rate returns the current rate estimate in events per second. Before the
// first tick it is the raw instantaneous rate of the pending marks.
func (e *EWMA) Rate() float64 {
	e.mu.Lock()
	warmed, rate := e.warmed, e.rate
	e.mu.Unlock()
	if !warmed {
		return float64(e.uncounted.Load()) / EWMATickInterval.Seconds()
	}
	return rate
}
