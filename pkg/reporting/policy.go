package reporting

import (
	"maps"
	"time"
)

// entry tracks the last accepted report of one metric: its field values
// and when it was sent. Entries live for the reporter's lifetime and are
// pruned only when the metric disappears from its registry.
type entry struct {
	fields     map[string]float64
	lastReport time.Time
}

// dedupState implements the change-or-timeout policy: report on first
// sight, on any field change, or when minReportingTimeout has elapsed
// since the last accepted report. Rejected reports leave the entry
// untouched, so an unchanging value still goes out every timeout period.
type dedupState struct {
	entries map[string]*entry
	timeout time.Duration
}

func newDedupState(timeout time.Duration) *dedupState {
	return &dedupState{entries: make(map[string]*entry), timeout: timeout}
}

// accept decides whether the metric at key should be reported at now with
// the given fields, updating the entry when it is.
func (d *dedupState) accept(key string, fields map[string]float64, now time.Time) bool {
	e, ok := d.entries[key]
	if !ok {
		d.entries[key] = &entry{fields: cloneFields(fields), lastReport: now}
		return true
	}
	if maps.Equal(e.fields, fields) && now.Sub(e.lastReport) < d.timeout {
		return false
	}
	e.fields = cloneFields(fields)
	e.lastReport = now
	return true
}

// prune drops entries for metrics no longer present in any registry.
func (d *dedupState) prune(seen map[string]struct{}) {
	for key := range d.entries {
		if _, ok := seen[key]; !ok {
			delete(d.entries, key)
		}
	}
}

func cloneFields(fields map[string]float64) map[string]float64 {
	cp := make(map[string]float64, len(fields))
	maps.Copy(cp, fields)
	return cp
}
