package reporting

import "time"

// Scheduler provides the recurring timer behind a reporter. The default
// wraps time.Ticker; tests inject a manual one.
type Scheduler interface {
	// Schedule arms a recurring timer with period d and returns its tick
	// channel plus a disarm function.
	Schedule(d time.Duration) (<-chan time.Time, func())
}

type tickerScheduler struct{}

func (tickerScheduler) Schedule(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// DefaultScheduler returns the time.Ticker-backed scheduler.
func DefaultScheduler() Scheduler { return tickerScheduler{} }

// ManualScheduler fires ticks only when told to, for tests.
type ManualScheduler struct {
	ch chan time.Time
}

// NewManualScheduler creates a manual scheduler with a small tick buffer.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{ch: make(chan time.Time, 16)}
}

// Schedule hands out the manual tick channel; the period is ignored.
func (s *ManualScheduler) Schedule(time.Duration) (<-chan time.Time, func()) {
	return s.ch, func() {}
}

// Fire emits one tick carrying t.
func (s *ManualScheduler) Fire(t time.Time) {
	s.ch <- t
}
