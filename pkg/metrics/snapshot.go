package metrics

import (
	"errors"
	"math"
	"sort"
)

// ErrQuantileRange is returned by Snapshot.Quantile for q outside [0, 1].
var ErrQuantileRange = errors.New("metrics: quantile out of range [0, 1]")

// Snapshot is an immutable, sorted, point-in-time copy of a reservoir's
// samples. It is created per report cycle and discarded after use; the
// reservoir never retains it. All statistics of an empty snapshot are zero.
type Snapshot struct {
	values []float64
}

// NewSnapshot copies and sorts values into a Snapshot.
func NewSnapshot(values []float64) *Snapshot {
	cp := make([]float64, len(values))
	copy(cp, values)
	return newSnapshotOwned(cp)
}

// newSnapshotOwned takes ownership of values, avoiding a second copy when
// the caller already holds a private slice.
func newSnapshotOwned(values []float64) *Snapshot {
	sort.Float64s(values)
	return &Snapshot{values: values}
}

// Size returns the number of samples.
func (s *Snapshot) Size() int { return len(s.values) }

// Min returns the smallest sample, zero when empty.
func (s *Snapshot) Min() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return s.values[0]
}

// Max returns the largest sample, zero when empty.
func (s *Snapshot) Max() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return s.values[len(s.values)-1]
}

// Sum returns the sum of all samples.
func (s *Snapshot) Sum() float64 {
	var sum float64
	for _, v := range s.values {
		sum += v
	}
	return sum
}

// Mean returns the arithmetic mean, zero when empty.
func (s *Snapshot) Mean() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return s.Sum() / float64(len(s.values))
}

// Variance returns the population variance, zero for fewer than two samples.
func (s *Snapshot) Variance() float64 {
	n := len(s.values)
	if n < 2 {
		return 0
	}
	mean := s.Mean()
	var sum float64
	for _, v := range s.values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(n)
}

// StdDev returns the population standard deviation.
func (s *Snapshot) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// Quantile returns the exact sample at index ceil(q*(n-1)) of the sorted
// values. q must lie in [0, 1]; anything else is a contract violation.
func (s *Snapshot) Quantile(q float64) (float64, error) {
	if q < 0 || q > 1 || math.IsNaN(q) {
		return 0, ErrQuantileRange
	}
	if len(s.values) == 0 {
		return 0, nil
	}
	idx := int(math.Ceil(q * float64(len(s.values)-1)))
	return s.values[idx], nil
}

// Quantiles resolves several quantiles at once; invalid entries yield zero.
func (s *Snapshot) Quantiles(qs ...float64) []float64 {
	out := make([]float64, len(qs))
	for i, q := range qs {
		v, err := s.Quantile(q)
		if err != nil {
			continue
		}
		out[i] = v
	}
	return out
}

// Values returns a copy of the sorted samples.
func (s *Snapshot) Values() []float64 {
	cp := make([]float64, len(s.values))
	copy(cp, s.values)
	return cp
}
