package metrics

import (
	"testing"
	"time"
)

func TestTimerUpdate(t *testing.T) {
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	tm := NewTimer(NewID("pass", "g", nil), clock)

	tm.Update(250 * time.Millisecond)
	tm.Update(750 * time.Millisecond)

	if got := tm.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}
	s := tm.Snapshot()
	if s.Min() != 250 || s.Max() != 750 {
		t.Errorf("durations not in milliseconds: min=%v max=%v", s.Min(), s.Max())
	}
}

func TestTimerRejectsNegative(t *testing.T) {
	tm := NewTimer(NewID("pass", "g", nil), nil)
	tm.Update(-time.Second)
	if got := tm.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0 after negative duration", got)
	}
}

func TestTimerUpdateSince(t *testing.T) {
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	tm := NewTimer(NewID("pass", "g", nil), clock)

	start := clock.Now()
	clock.Advance(2 * time.Second)
	tm.UpdateSince(start)

	s := tm.Snapshot()
	if s.Max() != 2000 {
		t.Errorf("UpdateSince recorded %v ms, want 2000", s.Max())
	}
}

func TestTimerTime(t *testing.T) {
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	tm := NewTimer(NewID("pass", "g", nil), clock)

	tm.Time(func() { clock.Advance(300 * time.Millisecond) })

	if got := tm.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
	if got := tm.Snapshot().Max(); got != 300 {
		t.Errorf("Time() recorded %v ms, want 300", got)
	}
}

func TestTimerRates(t *testing.T) {
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	tm := NewTimer(NewID("pass", "g", nil), clock)

	for i := 0; i < 10; i++ {
		tm.Update(time.Millisecond)
	}
	clock.Advance(EWMATickInterval)

	r := tm.Rates()
	if r.Count != 10 {
		t.Errorf("Rates().Count = %d, want 10", r.Count)
	}
	if r.Rate1 != 2.0 {
		t.Errorf("Rates().Rate1 = %v, want 2", r.Rate1)
	}
}
