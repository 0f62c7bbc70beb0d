package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// MeterRates is a point-in-time view of a meter's throughput figures, all
// in events per second.
type MeterRates struct {
	Count    int64
	Rate1    float64
	Rate5    float64
	Rate15   float64
	RateMean float64
}

// Meter measures the rate of events over 1, 5 and 15 minute windows plus
// the mean rate since creation. Mark never blocks; pending EWMA ticks are
// applied lazily when rates are read, i.e. on the reporter's schedule.
type Meter struct {
	descriptor
	m1, m5, m15 *EWMA
	count       atomic.Int64
	start       time.Time
	lastTick    int64 // unix nanos, guarded by tickMu
	tickMu      sync.Mutex
	clock       Clock
}

var _ Instrument = (*Meter)(nil)

// NewMeter creates an unregistered meter; prefer Registry.Meter.
func NewMeter(id ID, clock Clock) *Meter {
	if clock == nil {
		clock = SystemClock()
	}
	now := clock.Now()
	return &Meter{
		descriptor: newDescriptor(id),
		m1:         NewEWMA(time.Minute),
		m5:         NewEWMA(5 * time.Minute),
		m15:        NewEWMA(15 * time.Minute),
		start:      now,
		lastTick:   now.UnixNano(),
		clock:      clock,
	}
}

// Kind returns KindMeter.
func (m *Meter) Kind() Kind { return KindMeter }

// Mark records n events.
func (m *Meter) Mark(n int64) {
	m.count.Add(n)
	m.m1.Mark(n)
	m.m5.Mark(n)
	m.m15.Mark(n)
}

// Count returns the total number of events marked.
func (m *Meter) Count() int64 { return m.count.Load() }

// tickIfStale applies every elapsed 5s tick interval in one batch.
func (m *Meter) tickIfStale() {
	now := m.clock.Now().UnixNano()
	m.tickMu.Lock()
	defer m.tickMu.Unlock()
	interval := int64(EWMATickInterval)
	pending := (now - m.lastTick) / interval
	if pending <= 0 {
		return
	}
	m.lastTick += pending * interval
	for i := int64(0); i < pending; i++ {
		m.m1.Tick()
		m.m5.Tick()
		m.m15.Tick()
	}
}

// Rate1 returns the one-minute moving average rate.
func (m *Meter) Rate1() float64 {
	m.tickIfStale()
	return m.m1.Rate()
}

// Rate5 returns the five-minute moving average rate.
func (m *Meter) Rate5() float64 {
	m.tickIfStale()
	return m.m5.Rate()
}

// Rate15 returns the fifteen-minute moving average rate.
func (m *Meter) Rate15() float64 {
	m.tickIfStale()
	return m.m15.Rate()
}

// RateMean returns the mean rate since the meter was created.
func (m *Meter) RateMean() float64 {
	elapsed := m.clock.Now().Sub(m.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.count.Load()) / elapsed
}

// Rates captures every rate figure at once.
func (m *Meter) Rates() MeterRates {
	m.tickIfStale()
	return MeterRates{
		Count:    m.count.Load(),
		Rate1:    m.m1.Rate(),
		Rate5:    m.m5.Rate(),
		Rate15:   m.m15.Rate(),
		RateMean: m.RateMean(),
	}
}
