package metrics

// Gauge reads a value from a producer function at report time. The value
// is never stored eagerly; a nil producer reads as zero and a NaN result
// is filtered by the reporter rather than reported.
type Gauge struct {
	descriptor
	fn func() float64
}

var _ Instrument = (*Gauge)(nil)

// NewGauge creates an unregistered gauge; prefer Registry.Gauge.
func NewGauge(id ID, fn func() float64) *Gauge {
	return &Gauge{descriptor: newDescriptor(id), fn: fn}
}

// Kind returns KindGauge.
func (g *Gauge) Kind() Kind { return KindGauge }

// Value evaluates the producer.
func (g *Gauge) Value() float64 {
	if g.fn == nil {
		return 0
	}
	return g.fn()
}
