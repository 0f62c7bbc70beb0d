package remote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vshulcz/metrika/pkg/metrics"
	"github.com/vshulcz/metrika/pkg/reporting"
)

type captureHandler struct {
	mu      sync.Mutex
	batches [][]reporting.Row
}

func (c *captureHandler) HandleBatch(_ context.Context, rows []reporting.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, append([]reporting.Row(nil), rows...))
	return nil
}

func (c *captureHandler) batchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func (c *captureHandler) lastBatch() []reporting.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.batches) == 0 {
		return nil
	}
	return c.batches[len(c.batches)-1]
}

func workerMessage(worker string, seq uint64, rctx string, names ...string) Message {
	var rows []reporting.Row
	for _, n := range names {
		rows = append(rows, reporting.Row{
			Name: n, Kind: "counter", Fields: map[string]float64{"value": 1},
		})
	}
	return Message{
		Ctx:            rctx,
		Date:           time.Unix(1_700_000_000, 0),
		Metrics:        SplitRows(rows),
		TargetReporter: "coordinator",
		Type:           MessageType,
		Worker:         worker,
		Seq:            seq,
	}
}

func TestAggregatorFlushOnExpectedWorkers(t *testing.T) {
	clock := metrics.NewManualClock(time.Unix(1_700_000_000, 0))
	h := &captureHandler{}
	a := NewAggregator(h, AggregatorConfig{ExpectedWorkers: 2, FlushTimeout: 30 * time.Second, Clock: clock})

	if err := a.Receive(context.Background(), workerMessage("w1", 1, "rc@100", "a")); err != nil {
		t.Fatal(err)
	}
	if got := h.batchCount(); got != 0 {
		t.Fatalf("flushed before all workers reported: %d batches", got)
	}

	if err := a.Receive(context.Background(), workerMessage("w2", 1, "rc@100", "b")); err != nil {
		t.Fatal(err)
	}
	if got := h.batchCount(); got != 1 {
		t.Fatalf("batches = %d, want 1 after both workers", got)
	}

	// Disjoint union: both rows present exactly once.
	rows := h.lastBatch()
	if len(rows) != 2 {
		t.Fatalf("merged batch = %d rows, want 2", len(rows))
	}
	seen := map[string]int{}
	for _, r := range rows {
		seen[r.Name]++
	}
	if seen["a"] != 1 || seen["b"] != 1 {
		t.Errorf("merged rows wrong: %v", seen)
	}
}

func TestAggregatorDuplicateMergedOnce(t *testing.T) {
	clock := metrics.NewManualClock(time.Unix(1_700_000_000, 0))
	h := &captureHandler{}
	a := NewAggregator(h, AggregatorConfig{ExpectedWorkers: 2, FlushTimeout: 30 * time.Second, Clock: clock})

	msg := workerMessage("w1", 1, "rc@100", "a")
	if err := a.Receive(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	// Replayed delivery of the same (worker, seq).
	if err := a.Receive(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if err := a.Receive(context.Background(), workerMessage("w2", 1, "rc@100", "b")); err != nil {
		t.Fatal(err)
	}

	rows := h.lastBatch()
	if len(rows) != 2 {
		t.Errorf("duplicate was merged twice: %d rows", len(rows))
	}
}

func TestAggregatorTimeoutFlush(t *testing.T) {
	clock := metrics.NewManualClock(time.Unix(1_700_000_000, 0))
	h := &captureHandler{}
	a := NewAggregator(h, AggregatorConfig{ExpectedWorkers: 3, FlushTimeout: 30 * time.Second, Clock: clock})

	if err := a.Receive(context.Background(), workerMessage("w1", 1, "rc@100", "a")); err != nil {
		t.Fatal(err)
	}

	// Not stale yet.
	clock.Advance(10 * time.Second)
	a.FlushStale(context.Background(), clock.Now())
	if got := h.batchCount(); got != 0 {
		t.Fatalf("flushed before timeout: %d batches", got)
	}

	clock.Advance(25 * time.Second)
	a.FlushStale(context.Background(), clock.Now())
	if got := h.batchCount(); got != 1 {
		t.Fatalf("batches = %d, want 1 after timeout", got)
	}
	if rows := h.lastBatch(); len(rows) != 1 || rows[0].Name != "a" {
		t.Errorf("partial flush rows wrong: %+v", rows)
	}
}

func TestAggregatorLateMessageCarryover(t *testing.T) {
	clock := metrics.NewManualClock(time.Unix(1_700_000_000, 0))
	h := &captureHandler{}
	a := NewAggregator(h, AggregatorConfig{ExpectedWorkers: 2, FlushTimeout: 30 * time.Second, Clock: clock})

	if err := a.Receive(context.Background(), workerMessage("w1", 1, "rc@100", "a")); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)
	a.FlushStale(context.Background(), clock.Now())
	if got := h.batchCount(); got != 1 {
		t.Fatalf("batches = %d, want 1", got)
	}

	// w2 arrives after rc@100 already flushed: its rows join the next
	// flush instead of being dropped.
	if err := a.Receive(context.Background(), workerMessage("w2", 1, "rc@100", "late")); err != nil {
		t.Fatal(err)
	}
	if got := h.batchCount(); got != 1 {
		t.Fatalf("late message flushed immediately: %d batches", got)
	}

	if err := a.Receive(context.Background(), workerMessage("w1", 2, "rc@130", "b")); err != nil {
		t.Fatal(err)
	}
	if err := a.Receive(context.Background(), workerMessage("w2", 2, "rc@130", "c")); err != nil {
		t.Fatal(err)
	}

	rows := h.lastBatch()
	if len(rows) != 3 {
		t.Fatalf("carryover batch = %d rows, want 3", len(rows))
	}
	if rows[0].Name != "late" {
		t.Errorf("carried rows not prepended: first = %q", rows[0].Name)
	}
}

func TestAggregatorRejectsInvalid(t *testing.T) {
	h := &captureHandler{}
	a := NewAggregator(h, AggregatorConfig{})

	if err := a.Receive(context.Background(), Message{Type: "foreign"}); err != ErrWrongType {
		t.Errorf("foreign message error = %v, want ErrWrongType", err)
	}
	if err := a.Receive(context.Background(), Message{Type: MessageType}); err != ErrMalformed {
		t.Errorf("malformed message error = %v, want ErrMalformed", err)
	}
	if got := h.batchCount(); got != 0 {
		t.Errorf("invalid messages produced batches: %d", got)
	}
}

func TestAggregatorIndependentContexts(t *testing.T) {
	clock := metrics.NewManualClock(time.Unix(1_700_000_000, 0))
	h := &captureHandler{}
	a := NewAggregator(h, AggregatorConfig{ExpectedWorkers: 2, FlushTimeout: 30 * time.Second, Clock: clock})

	if err := a.Receive(context.Background(), workerMessage("w1", 1, "rc@100", "a")); err != nil {
		t.Fatal(err)
	}
	if err := a.Receive(context.Background(), workerMessage("w1", 2, "rc@130", "b")); err != nil {
		t.Fatal(err)
	}
	// Completing one context must not flush the other.
	if err := a.Receive(context.Background(), workerMessage("w2", 1, "rc@100", "c")); err != nil {
		t.Fatal(err)
	}
	if got := h.batchCount(); got != 1 {
		t.Fatalf("batches = %d, want 1", got)
	}
	for _, r := range h.lastBatch() {
		if r.Name == "b" {
			t.Errorf("row from a different context leaked into the flush")
		}
	}
}

func TestAggregatorPrunesSeen(t *testing.T) {
	clock := metrics.NewManualClock(time.Unix(1_700_000_000, 0))
	h := &captureHandler{}
	a := NewAggregator(h, AggregatorConfig{ExpectedWorkers: 1, FlushTimeout: time.Second, Clock: clock})

	if err := a.Receive(context.Background(), workerMessage("w1", 1, "rc@100", "a")); err != nil {
		t.Fatal(err)
	}

	// Far past the dedup horizon the bookkeeping must be dropped, so the
	// same identity merges again.
	clock.Advance(time.Minute)
	a.FlushStale(context.Background(), clock.Now())

	if err := a.Receive(context.Background(), workerMessage("w1", 1, "rc@200", "a")); err != nil {
		t.Fatal(err)
	}
	if got := h.batchCount(); got != 2 {
		t.Errorf("batches = %d, want 2 after dedup horizon", got)
	}
}
