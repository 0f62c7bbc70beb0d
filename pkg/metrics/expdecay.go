package metrics

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Defaults matching the usual forward-decaying sample parameters: heavy
// bias towards the last five minutes of data.
const (
	DefaultExpDecayAlpha = 0.015
	rescaleInterval      = time.Hour
)

type weightedSample struct {
	priority float64
	value    float64
}

// sampleHeap is a min-heap over sample priorities. Hand-specialized rather
// than container/heap to keep eviction allocation-free.
type sampleHeap struct {
	items []weightedSample
}

func (h *sampleHeap) push(s weightedSample) {
	h.items = append(h.items, s)
	h.up(len(h.items) - 1)
}

func (h *sampleHeap) popMin() weightedSample {
	min := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.down(0)
	}
	return min
}

func (h *sampleHeap) min() weightedSample { return h.items[0] }

func (h *sampleHeap) len() int { return len(h.items) }

func (h *sampleHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[parent].priority <= h.items[i].priority {
			return
		}
		h.items[parent], h.items[i] = h.items[i], h.items[parent]
		i = parent
	}
}

func (h *sampleHeap) down(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			return
		}
		smallest := left
		if right := left + 1; right < n && h.items[right].priority < h.items[left].priority {
			smallest = right
		}
		if h.items[i].priority <= h.items[smallest].priority {
			return
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// ExpDecayReservoir is a capacity-bounded, exponentially-decaying reservoir:
// each sample carries the randomized priority exp(alpha*(t-t0))/draw with
// draw uniform in (0,1], and the lowest-priority sample is evicted when the
// reservoir is full, so recent samples dominate and old ones decay out. The
// priorities are periodically rescaled against a new reference time to keep
// the exponent bounded.
type ExpDecayReservoir struct {
	mu       sync.Mutex
	heap     sampleHeap
	capacity int
	alpha    float64
	t0       time.Time
	rescale  time.Time
	rnd      *rand.Rand
	clock    Clock
}

var _ Reservoir = (*ExpDecayReservoir)(nil)

// NewExpDecayReservoir creates a decaying reservoir. Zero capacity or alpha
// select the defaults; clock may be nil for the system clock.
func NewExpDecayReservoir(capacity int, alpha float64, clock Clock) *ExpDecayReservoir {
	if capacity <= 0 {
		capacity = DefaultReservoirSize
	}
	if alpha <= 0 {
		alpha = DefaultExpDecayAlpha
	}
	if clock == nil {
		clock = SystemClock()
	}
	now := clock.Now()
	return &ExpDecayReservoir{
		heap:     sampleHeap{items: make([]weightedSample, 0, capacity)},
		capacity: capacity,
		alpha:    alpha,
		t0:       now,
		rescale:  now.Add(rescaleInterval),
		rnd:      rand.New(rand.NewSource(now.UnixNano())), // #nosec G404
		clock:    clock,
	}
}

// Update offers a value observed at now.
func (r *ExpDecayReservoir) Update(v float64, now time.Time) {
	if !finite(v) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !now.Before(r.rescale) {
		r.rescaleLocked(now)
	}

	weight := math.Exp(r.alpha * now.Sub(r.t0).Seconds())
	draw := 1 - r.rnd.Float64() // uniform in (0, 1]
	s := weightedSample{priority: weight / draw, value: v}

	if r.heap.len() < r.capacity {
		r.heap.push(s)
		return
	}
	if s.priority > r.heap.min().priority {
		r.heap.popMin()
		r.heap.push(s)
	}
}

// rescaleLocked recomputes every priority relative to a new reference time.
// Multiplying each key by the same exp factor preserves relative order, so
// the heap shape stays valid and no entry is lost or duplicated.
func (r *ExpDecayReservoir) rescaleLocked(now time.Time) {
	factor := math.Exp(-r.alpha * now.Sub(r.t0).Seconds())
	for i := range r.heap.items {
		r.heap.items[i].priority *= factor
	}
	r.t0 = now
	r.rescale = now.Add(rescaleInterval)
}

// Snapshot copies the current sample values.
func (r *ExpDecayReservoir) Snapshot() *Snapshot {
	r.mu.Lock()
	cp := make([]float64, r.heap.len())
	for i, s := range r.heap.items {
		cp[i] = s.value
	}
	r.mu.Unlock()
	return newSnapshotOwned(cp)
}

// Size returns the number of retained samples.
func (r *ExpDecayReservoir) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.heap.len()
}
