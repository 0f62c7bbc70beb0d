package metrics

import (
	"math"
	"testing"
	"time"
)

func TestHistogramUpdate(t *testing.T) {
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	h := NewHistogram(NewID("latency", "g", nil), NewUniformReservoir(100), clock)

	for _, v := range []float64{1, 2, 3, 4, 5} {
		h.Update(v)
	}
	if got := h.Count(); got != 5 {
		t.Fatalf("Count() = %d, want 5", got)
	}
	s := h.Snapshot()
	if s.Size() != 5 || s.Min() != 1 || s.Max() != 5 || s.Mean() != 3 {
		t.Errorf("snapshot stats wrong: size=%d min=%v max=%v mean=%v", s.Size(), s.Min(), s.Max(), s.Mean())
	}
}

func TestHistogramRejectsNonFinite(t *testing.T) {
	h := NewHistogram(NewID("x", "g", nil), NewUniformReservoir(10), nil)
	h.Update(math.NaN())
	h.Update(math.Inf(1))
	if got := h.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0 after non-finite updates", got)
	}
}

func TestHistogramCountExceedsReservoir(t *testing.T) {
	h := NewHistogram(NewID("x", "g", nil), NewUniformReservoir(8), nil)
	for i := 0; i < 100; i++ {
		h.Update(float64(i))
	}
	if got := h.Count(); got != 100 {
		t.Errorf("Count() = %d, want 100", got)
	}
	if got := h.Snapshot().Size(); got != 8 {
		t.Errorf("Snapshot().Size() = %d, want 8", got)
	}
}

func TestHistogramDefaultReservoir(t *testing.T) {
	h := NewHistogram(NewID("x", "g", nil), nil, nil)
	h.Update(1)
	if got := h.Snapshot().Size(); got != 1 {
		t.Errorf("default reservoir lost the sample: size=%d", got)
	}
}
