package main

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/vshulcz/metrika/internal/config"
	"github.com/vshulcz/metrika/internal/misc"
	"github.com/vshulcz/metrika/internal/sink/csvsink"
	"github.com/vshulcz/metrika/internal/sink/logsink"
	"github.com/vshulcz/metrika/internal/sink/pgsink"
	"github.com/vshulcz/metrika/pkg/reporting"
)

// buildSinks assembles the configured sink set. The log sink is always on,
// CSV and Postgres join when configured. The second return is the ping
// target for the health endpoint, nil without a database.
func buildSinks(cfg config.CoordinatorConfig, logger *zap.Logger) ([]reporting.Handler, *pgsink.Sink) {
	sinks := []reporting.Handler{logsink.New(logger)}

	if cfg.CSVPath != "" {
		sinks = append(sinks, csvsink.New(cfg.CSVPath))
		logger.Info("csv sink enabled", zap.String("path", cfg.CSVPath))
	}

	if cfg.DSN != "" {
		ctx := context.Background()
		db, err := sql.Open("postgres", cfg.DSN)
		if err == nil {
			op := func() error {
				if err := db.Ping(); err != nil {
					return err
				}
				return pgsink.Migrate(db)
			}
			if err = misc.Retry(ctx, misc.DefaultBackoff, pgsink.IsRetryable, op); err == nil {
				logger.Info("db connected & migrated")
				pg := pgsink.New(db)
				return append(sinks, pg), pg
			}
		}
		logger.Warn("postgres init failed, continuing without db sink", zap.Error(err))
	}

	return sinks, nil
}
