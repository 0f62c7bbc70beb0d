// Package csvsink appends report rows to a CSV file, one record per
// metric field, so the header never depends on which instruments exist.
package csvsink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/vshulcz/metrika/pkg/metrics"
	"github.com/vshulcz/metrika/pkg/reporting"
)

var header = []string{"time", "kind", "group", "name", "tags", "field", "value"}

// Sink writes rows in long format: one CSV record per (row, field) pair.
type Sink struct {
	mu   sync.Mutex
	path string
}

var _ reporting.Handler = (*Sink)(nil)
var _ reporting.Preparer = (*Sink)(nil)

// New creates a CSV sink writing to path.
func New(path string) *Sink {
	return &Sink{path: path}
}

// Prepare creates the file and writes the header once, at reporter start.
func (s *Sink) Prepare(_ context.Context, _ []metrics.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	info, err := os.Stat(s.path)
	if err == nil && info.Size() > 0 {
		return nil // resuming an existing file, header already there
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush header: %w", err)
	}
	return f.Close()
}

// HandleBatch appends one record per field of every row.
func (s *Sink) HandleBatch(_ context.Context, rows []reporting.Row) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close: %w", cerr)
		}
	}()

	w := csv.NewWriter(f)
	for _, row := range rows {
		tags := flattenTags(row.Tags)
		for _, field := range sortedFields(row.Fields) {
			record := []string{
				row.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
				row.Kind,
				row.Group,
				row.Name,
				tags,
				field,
				strconv.FormatFloat(row.Fields[field], 'f', -1, 64),
			}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func flattenTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + tags[k]
	}
	return strings.Join(parts, ",")
}

func sortedFields(fields map[string]float64) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
