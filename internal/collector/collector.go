// Package collector samples Go runtime stats and host CPU/RAM usage into
// registry instruments, so a worker reports its own health alongside
// application metrics.
package collector

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/metrika/pkg/metrics"
)

const group = "runtime"

var memstatNames = []string{
	"Alloc", "BuckHashSys", "Frees", "GCCPUFraction", "GCSys", "HeapAlloc",
	"HeapIdle", "HeapInuse", "HeapObjects", "HeapReleased", "HeapSys",
	"LastGC", "Lookups", "MCacheInuse", "MCacheSys", "MSpanInuse",
	"MSpanSys", "Mallocs", "NextGC", "NumForcedGC", "NumGC", "OtherSys",
	"PauseTotalNs", "StackInuse", "StackSys", "Sys", "TotalAlloc",
	"TotalMemory", "FreeMemory",
}

// System periodically samples runtime and host metrics into a registry:
// lazy gauges over the sampled state, a monotone poll counter and a timer
// around each sampling pass.
type System struct {
	reg      *metrics.Registry
	st       *stateStore
	polls    *metrics.MonotoneCounter
	passTime *metrics.Timer
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New registers the collector's instruments and returns it unstarted.
func New(reg *metrics.Registry) (*System, error) {
	st := newStateStore()
	for _, name := range memstatNames {
		if _, err := reg.Gauge(metrics.NewID(name, group, nil), st.producer(name)); err != nil {
			return nil, fmt.Errorf("register gauge %s: %w", name, err)
		}
	}
	polls, err := reg.MonotoneCounter(metrics.NewID("PollCount", group, nil))
	if err != nil {
		return nil, fmt.Errorf("register poll counter: %w", err)
	}
	passTime, err := reg.Timer(metrics.NewID("SamplePass", group, nil))
	if err != nil {
		return nil, fmt.Errorf("register sample timer: %w", err)
	}
	return &System{
		reg:      reg,
		st:       st,
		polls:    polls,
		passTime: passTime,
		stop:     make(chan struct{}),
	}, nil
}

// Start launches the sampling goroutine at the given interval.
func (s *System) Start(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-t.C:
				s.passTime.Time(s.sampleOnce)
				s.polls.Inc(1)
			}
		}
	}()
}

// Stop halts sampling and waits for the goroutine to finish.
func (s *System) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.wg.Wait()
}

func (s *System) sampleOnce() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s.st.set("Alloc", float64(ms.Alloc))
	s.st.set("BuckHashSys", float64(ms.BuckHashSys))
	s.st.set("Frees", float64(ms.Frees))
	s.st.set("GCCPUFraction", ms.GCCPUFraction)
	s.st.set("GCSys", float64(ms.GCSys))
	s.st.set("HeapAlloc", float64(ms.HeapAlloc))
	s.st.set("HeapIdle", float64(ms.HeapIdle))
	s.st.set("HeapInuse", float64(ms.HeapInuse))
	s.st.set("HeapObjects", float64(ms.HeapObjects))
	s.st.set("HeapReleased", float64(ms.HeapReleased))
	s.st.set("HeapSys", float64(ms.HeapSys))
	s.st.set("LastGC", float64(ms.LastGC))
	s.st.set("Lookups", float64(ms.Lookups))
	s.st.set("MCacheInuse", float64(ms.MCacheInuse))
	s.st.set("MCacheSys", float64(ms.MCacheSys))
	s.st.set("MSpanInuse", float64(ms.MSpanInuse))
	s.st.set("MSpanSys", float64(ms.MSpanSys))
	s.st.set("Mallocs", float64(ms.Mallocs))
	s.st.set("NextGC", float64(ms.NextGC))
	s.st.set("NumForcedGC", float64(ms.NumForcedGC))
	s.st.set("NumGC", float64(ms.NumGC))
	s.st.set("OtherSys", float64(ms.OtherSys))
	s.st.set("PauseTotalNs", float64(ms.PauseTotalNs))
	s.st.set("StackInuse", float64(ms.StackInuse))
	s.st.set("StackSys", float64(ms.StackSys))
	s.st.set("Sys", float64(ms.Sys))
	s.st.set("TotalAlloc", float64(ms.TotalAlloc))

	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		s.st.set("TotalMemory", float64(vm.Total))
		s.st.set("FreeMemory", float64(vm.Free))
	}
	if pct, err := cpu.Percent(0, true); err == nil {
		for i, p := range pct {
			name := fmt.Sprintf("CPUutilization%d", i+1)
			s.st.set(name, p)
			// get-or-create keeps repeat registrations cheap
			_, _ = s.reg.Gauge(metrics.NewID(name, group, nil), s.st.producer(name))
		}
	}
}
