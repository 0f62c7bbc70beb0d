package metrics

import (
	"math"
	"testing"
	"time"
)

func TestMeterCount(t *testing.T) {
	m := NewMeter(NewID("events", "g", nil), nil)
	m.Mark(3)
	m.Mark(2)
	if got := m.Count(); got != 5 {
		t.Errorf("Count() = %d, want 5", got)
	}
}

func TestMeterLazyTick(t *testing.T) {
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	m := NewMeter(NewID("events", "g", nil), clock)

	m.Mark(50)
	// No time has passed: reading must not tick, so the instantaneous
	// pre-warmup rate shows.
	if got, want := m.Rate1(), 10.0; got != want {
		t.Errorf("pre-tick Rate1() = %v, want %v", got, want)
	}

	// One tick interval elapses; the read folds the marks in.
	clock.Advance(EWMATickInterval)
	if got, want := m.Rate1(), 10.0; got != want {
		t.Errorf("post-tick Rate1() = %v, want %v", got, want)
	}

	// A minute of silence decays the one-minute rate noticeably.
	clock.Advance(time.Minute)
	if got := m.Rate1(); got >= 10.0 || got <= 0 {
		t.Errorf("decayed Rate1() = %v, want in (0, 10)", got)
	}
}

func TestMeterBatchedTicks(t *testing.T) {
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	m := NewMeter(NewID("events", "g", nil), clock)

	m.Mark(100)
	clock.Advance(10 * EWMATickInterval)

	// All ten pending ticks are applied on this read; the marks fold in
	// at the first of them and decay through the remaining nine.
	alpha := 1 - math.Exp(-5.0/60.0)
	want := 20.0
	for i := 0; i < 9; i++ {
		want *= 1 - alpha
	}
	if got := m.Rate1(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Rate1() after batched ticks = %v, want %v", got, want)
	}
}

func TestMeterRateMean(t *testing.T) {
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	m := NewMeter(NewID("events", "g", nil), clock)

	if got := m.RateMean(); got != 0 {
		t.Fatalf("RateMean() with no elapsed time = %v, want 0", got)
	}

	m.Mark(30)
	clock.Advance(10 * time.Second)
	if got, want := m.RateMean(), 3.0; got != want {
		t.Errorf("RateMean() = %v, want %v", got, want)
	}
}

func TestMeterRates(t *testing.T) {
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	m := NewMeter(NewID("events", "g", nil), clock)

	m.Mark(10)
	clock.Advance(EWMATickInterval)

	r := m.Rates()
	if r.Count != 10 {
		t.Errorf("Rates().Count = %d, want 10", r.Count)
	}
	if r.Rate1 != 2.0 || r.Rate5 != 2.0 || r.Rate15 != 2.0 {
		t.Errorf("first-tick rates = %v/%v/%v, want 2 each", r.Rate1, r.Rate5, r.Rate15)
	}
	if r.RateMean != 2.0 {
		t.Errorf("Rates().RateMean = %v, want 2", r.RateMean)
	}
}
