package metrics

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultReservoirSize is the capacity used by Registry-built histograms.
const DefaultReservoirSize = 1028

// UniformReservoir keeps a uniformly random sample of the values it has
// seen (Vitter's Algorithm R): once full, item k replaces a random slot
// with probability capacity/k, so every item seen so far has an equal
// chance of being retained.
type UniformReservoir struct {
	mu     sync.Mutex
	values []float64
	count  int64
	rnd    *rand.Rand
}

var _ Reservoir = (*UniformReservoir)(nil)

// NewUniformReservoir creates a uniform reservoir with the given capacity.
func NewUniformReservoir(capacity int) *UniformReservoir {
	if capacity <= 0 {
		capacity = DefaultReservoirSize
	}
	return &UniformReservoir{
		values: make([]float64, 0, capacity),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404
	}
}

// Update offers a value; the timestamp is ignored by the uniform policy.
func (r *UniformReservoir) Update(v float64, _ time.Time) {
	if !finite(v) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	if len(r.values) < cap(r.values) {
		r.values = append(r.values, v)
		return
	}
	if idx := r.rnd.Int63n(r.count); idx < int64(len(r.values)) {
		r.values[idx] = v
	}
}

// Snapshot copies the sample set under the lock and sorts outside it.
func (r *UniformReservoir) Snapshot() *Snapshot {
	r.mu.Lock()
	cp := make([]float64, len(r.values))
	copy(cp, r.values)
	r.mu.Unlock()
	return newSnapshotOwned(cp)
}

// Size returns the number of retained samples.
func (r *UniformReservoir) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}
