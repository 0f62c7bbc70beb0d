// Package logsink writes report rows as structured log lines.
package logsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/vshulcz/metrika/pkg/reporting"
)

// Sink logs one line per row through zap.
type Sink struct {
	logger *zap.Logger
}

var _ reporting.Handler = (*Sink)(nil)

// New creates a log sink over the given logger.
func New(logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{logger: logger}
}

// HandleBatch logs every row; it never fails.
func (s *Sink) HandleBatch(_ context.Context, rows []reporting.Row) error {
	for _, row := range rows {
		fields := make([]zap.Field, 0, 4+len(row.Fields))
		fields = append(fields,
			zap.String("kind", row.Kind),
			zap.String("name", row.Name),
			zap.Time("at", row.Time),
		)
		if row.Group != "" {
			fields = append(fields, zap.String("group", row.Group))
		}
		if len(row.Tags) > 0 {
			fields = append(fields, zap.Any("tags", row.Tags))
		}
		for k, v := range row.Fields {
			fields = append(fields, zap.Float64(k, v))
		}
		s.logger.Info("metric", fields...)
	}
	return nil
}
