package metrics

import "sync"

// Kind discriminates the six instrument variants.
type Kind int

const (
	KindMonotoneCounter Kind = iota
	KindCounter
	KindGauge
	KindHistogram
	KindMeter
	KindTimer
)

// ReportOrder is the fixed order in which a reporter walks instrument
// kinds. It only makes output grouping deterministic.
var ReportOrder = [...]Kind{
	KindMonotoneCounter,
	KindCounter,
	KindGauge,
	KindHistogram,
	KindMeter,
	KindTimer,
}

func (k Kind) String() string {
	switch k {
	case KindMonotoneCounter:
		return "monotone_counter"
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindHistogram:
		return "histogram"
	case KindMeter:
		return "meter"
	case KindTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// Instrument is a registered measurement object.
type Instrument interface {
	ID() ID
	Kind() Kind
	Meta() Metadata
}

// descriptor carries the identity and metadata shared by every instrument.
type descriptor struct {
	id     ID
	metaMu sync.RWMutex
	meta   Metadata
}

func newDescriptor(id ID) descriptor {
	return descriptor{id: id}
}

// ID returns the instrument's identity.
func (d *descriptor) ID() ID { return d.id }

// Meta returns a copy of the instrument's metadata annotations.
func (d *descriptor) Meta() Metadata {
	d.metaMu.RLock()
	defer d.metaMu.RUnlock()
	if len(d.meta) == 0 {
		return nil
	}
	out := make(Metadata, len(d.meta))
	for k, v := range d.meta {
		out[k] = v
	}
	return out
}

// SetMeta attaches an annotation to the instrument.
func (d *descriptor) SetMeta(key string, v MetaValue) {
	d.metaMu.Lock()
	if d.meta == nil {
		d.meta = make(Metadata)
	}
	d.meta[key] = v
	d.metaMu.Unlock()
}
