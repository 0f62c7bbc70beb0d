// Package remote implements the same-host interprocess aggregation
// protocol: worker reporters forward their accepted result batches to a
// coordinating process, which merges them and replays the normal sink
// pipeline once per tick.
package remote

import (
	"errors"
	"time"

	"github.com/vshulcz/metrika/pkg/metrics"
	"github.com/vshulcz/metrika/pkg/reporting"
)

// MessageType discriminates report messages from unrelated interprocess
// traffic; consumers must ignore any other type.
const MessageType = "metrika.report.v1"

var (
	// ErrWrongType marks a message whose type tag is not MessageType.
	ErrWrongType = errors.New("remote: not a metrics report message")
	// ErrMalformed marks a structurally invalid message.
	ErrMalformed = errors.New("remote: malformed report message")
)

// RowSet carries formatted results split by instrument kind, in the wire
// layout of the metrics field.
type RowSet struct {
	Counters         []reporting.Row `json:"counters,omitempty"`
	Gauges           []reporting.Row `json:"gauges,omitempty"`
	Histograms       []reporting.Row `json:"histograms,omitempty"`
	Meters           []reporting.Row `json:"meters,omitempty"`
	MonotoneCounters []reporting.Row `json:"monotoneCounters,omitempty"`
	Timers           []reporting.Row `json:"timers,omitempty"`
}

// Len returns the total number of rows across all kinds.
func (s RowSet) Len() int {
	return len(s.MonotoneCounters) + len(s.Counters) + len(s.Gauges) +
		len(s.Histograms) + len(s.Meters) + len(s.Timers)
}

// Flatten concatenates the per-kind lists in the fixed report order.
func (s RowSet) Flatten() []reporting.Row {
	out := make([]reporting.Row, 0, s.Len())
	out = append(out, s.MonotoneCounters...)
	out = append(out, s.Counters...)
	out = append(out, s.Gauges...)
	out = append(out, s.Histograms...)
	out = append(out, s.Meters...)
	out = append(out, s.Timers...)
	return out
}

// Message is one worker report forwarded to the coordinator. It is
// immutable once constructed and merged exactly once, identified by
// (Worker, Seq).
type Message struct {
	Ctx            string            `json:"ctx"`
	Date           time.Time         `json:"date"`
	Tags           map[string]string `json:"tags,omitempty"`
	Metrics        RowSet            `json:"metrics"`
	TargetReporter string            `json:"targetReporterType"`
	Type           string            `json:"type"`
	Worker         string            `json:"worker"`
	Seq            uint64            `json:"seq"`
}

// Validate classifies a received message: ErrWrongType for foreign traffic,
// ErrMalformed for report messages missing their identity.
func (m *Message) Validate() error {
	if m.Type != MessageType {
		return ErrWrongType
	}
	if m.Worker == "" || m.Ctx == "" {
		return ErrMalformed
	}
	return nil
}

// SplitRows groups a flat batch by instrument kind.
func SplitRows(rows []reporting.Row) RowSet {
	var set RowSet
	for _, row := range rows {
		switch row.Kind {
		case metrics.KindMonotoneCounter.String():
			set.MonotoneCounters = append(set.MonotoneCounters, row)
		case metrics.KindCounter.String():
			set.Counters = append(set.Counters, row)
		case metrics.KindGauge.String():
			set.Gauges = append(set.Gauges, row)
		case metrics.KindHistogram.String():
			set.Histograms = append(set.Histograms, row)
		case metrics.KindMeter.String():
			set.Meters = append(set.Meters, row)
		case metrics.KindTimer.String():
			set.Timers = append(set.Timers, row)
		}
	}
	return set
}
