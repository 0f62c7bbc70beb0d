package metrics

import (
	"math"
	"time"
)

// Reservoir is a bounded-size sample of observed values. Updates come from
// arbitrary application goroutines; Snapshot is read by the reporter. The
// sample count never exceeds the reservoir's capacity.
type Reservoir interface {
	// Update offers a value observed at now. Non-finite values are
	// rejected without changing state.
	Update(v float64, now time.Time)
	// Snapshot returns an immutable sorted copy of the current samples.
	Snapshot() *Snapshot
	// Size returns the current number of retained samples.
	Size() int
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
