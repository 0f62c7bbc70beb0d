package collector

import "sync"

// stateStore holds the most recent sampled values; registered gauges read
// from it lazily at report time.
type stateStore struct {
	mu     sync.RWMutex
	gauges map[string]float64
}

func newStateStore() *stateStore {
	return &stateStore{gauges: make(map[string]float64)}
}

func (s *stateStore) set(name string, v float64) {
	s.mu.Lock()
	s.gauges[name] = v
	s.mu.Unlock()
}

func (s *stateStore) get(name string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gauges[name]
}

// producer returns a gauge producer bound to one sampled value.
func (s *stateStore) producer(name string) func() float64 {
	return func() float64 { return s.get(name) }
}
