// Package reporting implements the scheduled reporter base: a timer-driven
// loop that drains instrument state from one or more registries, applies
// the change-or-timeout dedup policy and hands formatted batches to
// pluggable sink handlers.
package reporting

import (
	"time"

	"github.com/vshulcz/metrika/pkg/metrics"
)

// Row is the sink representation of one instrument at one tick. Sinks only
// ever see rows; they never touch live instruments.
type Row struct {
	Name   string             `json:"name"`
	Group  string             `json:"group,omitempty"`
	Kind   string             `json:"kind"`
	Tags   map[string]string  `json:"tags,omitempty"`
	Fields map[string]float64 `json:"fields"`
	Meta   metrics.Metadata   `json:"meta,omitempty"`
	Time   time.Time          `json:"time"`
}

// Field names used by the default formatters.
const (
	FieldValue    = "value"
	FieldCount    = "count"
	FieldMin      = "min"
	FieldMax      = "max"
	FieldMean     = "mean"
	FieldStdDev   = "stddev"
	FieldP50      = "p50"
	FieldP75      = "p75"
	FieldP95      = "p95"
	FieldP99      = "p99"
	FieldP999     = "p999"
	FieldRate1    = "m1_rate"
	FieldRate5    = "m5_rate"
	FieldRate15   = "m15_rate"
	FieldRateMean = "mean_rate"
)
