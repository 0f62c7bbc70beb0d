package metrics

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry(nil)
	id := NewID("requests", "http", map[string]string{"env": "prod"})

	a, err := r.Counter(id)
	if err != nil {
		t.Fatalf("Counter() error: %v", err)
	}
	b, err := r.Counter(NewID("requests", "http", map[string]string{"env": "prod"}))
	if err != nil {
		t.Fatalf("Counter() second call error: %v", err)
	}
	if a != b {
		t.Errorf("same identity produced two instruments")
	}

	a.Inc(5)
	if got := b.Value(); got != 5 {
		t.Errorf("shared counter Value() = %d, want 5", got)
	}
	if got := r.Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}

func TestRegistryKindMismatch(t *testing.T) {
	r := NewRegistry(nil)
	id := NewID("x", "g", nil)
	if _, err := r.Counter(id); err != nil {
		t.Fatalf("Counter() error: %v", err)
	}

	tests := []struct {
		name string
		get  func() error
	}{
		{"gauge", func() error { _, err := r.Gauge(id, nil); return err }},
		{"histogram", func() error { _, err := r.Histogram(id); return err }},
		{"meter", func() error { _, err := r.Meter(id); return err }},
		{"timer", func() error { _, err := r.Timer(id); return err }},
		{"monotone counter", func() error { _, err := r.MonotoneCounter(id); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.get(); !errors.Is(err, ErrKindMismatch) {
				t.Errorf("error = %v, want ErrKindMismatch", err)
			}
		})
	}

	if got := r.Size(); got != 1 {
		t.Errorf("mismatch attempts changed the registry: Size() = %d", got)
	}
}

func TestRegistryDistinctIdentities(t *testing.T) {
	r := NewRegistry(nil)

	ids := []ID{
		NewID("x", "g", nil),
		NewID("x", "h", nil),
		NewID("y", "g", nil),
		NewID("x", "g", map[string]string{"env": "prod"}),
		NewID("x", "g", map[string]string{"env": "dev"}),
	}
	for _, id := range ids {
		if _, err := r.Counter(id); err != nil {
			t.Fatalf("Counter(%s) error: %v", id.Key(), err)
		}
	}
	if got := r.Size(); got != len(ids) {
		t.Errorf("Size() = %d, want %d", got, len(ids))
	}
}

func TestRegistryGaugeKeepsProducer(t *testing.T) {
	r := NewRegistry(nil)
	id := NewID("x", "g", nil)

	g1, err := r.Gauge(id, func() float64 { return 1 })
	if err != nil {
		t.Fatalf("Gauge() error: %v", err)
	}
	g2, err := r.Gauge(id, func() float64 { return 2 })
	if err != nil {
		t.Fatalf("Gauge() second call error: %v", err)
	}
	if g1 != g2 {
		t.Fatalf("same identity produced two gauges")
	}
	if got := g2.Value(); got != 1 {
		t.Errorf("existing producer replaced: Value() = %v", got)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(nil)
	id := NewID("x", "g", nil)

	c1, err := r.Counter(id)
	if err != nil {
		t.Fatalf("Counter() error: %v", err)
	}
	c1.Inc(10)

	r.Remove(id)
	if got := r.Size(); got != 0 {
		t.Fatalf("Size() after Remove = %d, want 0", got)
	}
	// Removing an absent identity is a no-op.
	r.Remove(id)

	c2, err := r.Counter(id)
	if err != nil {
		t.Fatalf("Counter() after Remove error: %v", err)
	}
	if c2 == c1 || c2.Value() != 0 {
		t.Errorf("re-registration did not start fresh: value=%d", c2.Value())
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Counter(NewID("a", "g", nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Counter(NewID("b", "g", nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Meter(NewID("c", "g", nil)); err != nil {
		t.Fatal(err)
	}

	counters := r.List(KindCounter)
	if len(counters) != 2 {
		t.Fatalf("List(KindCounter) = %d instruments, want 2", len(counters))
	}

	// The returned slice is point-in-time: later registrations do not
	// appear in it.
	if _, err := r.Counter(NewID("d", "g", nil)); err != nil {
		t.Fatal(err)
	}
	if len(counters) != 2 {
		t.Errorf("List() result changed after registration: %d", len(counters))
	}
	if got := len(r.List(KindCounter)); got != 3 {
		t.Errorf("fresh List(KindCounter) = %d, want 3", got)
	}
	if got := len(r.List(KindTimer)); got != 0 {
		t.Errorf("List(KindTimer) = %d, want 0", got)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry(nil)
	id := NewID("shared", "g", nil)

	var wg sync.WaitGroup
	counters := make([]*Counter, 16)
	for i := range counters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := r.Counter(id)
			if err != nil {
				t.Errorf("Counter() error: %v", err)
				return
			}
			counters[i] = c
			c.Inc(1)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(counters); i++ {
		if counters[i] != counters[0] {
			t.Fatalf("concurrent get-or-create returned distinct instruments")
		}
	}
	if got := counters[0].Value(); got != 16 {
		t.Errorf("Value() = %d, want 16", got)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindMonotoneCounter, "monotone_counter"},
		{KindCounter, "counter"},
		{KindGauge, "gauge"},
		{KindHistogram, "histogram"},
		{KindMeter, "meter"},
		{KindTimer, "timer"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
