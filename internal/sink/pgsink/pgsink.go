// Package pgsink stores report rows in Postgres with retryable writes.
package pgsink

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/vshulcz/metrika/internal/misc"
	"github.com/vshulcz/metrika/pkg/reporting"
)

// Sink inserts every row of a batch inside one transaction.
type Sink struct {
	db *sql.DB
}

var _ reporting.Handler = (*Sink)(nil)

var retryablePGCodes = map[string]struct{}{
	pgerrcode.ConnectionException:                           {},
	pgerrcode.ConnectionDoesNotExist:                        {},
	pgerrcode.ConnectionFailure:                             {},
	pgerrcode.SQLClientUnableToEstablishSQLConnection:       {},
	pgerrcode.SQLServerRejectedEstablishmentOfSQLConnection: {},
	pgerrcode.TransactionResolutionUnknown:                  {},
	pgerrcode.ProtocolViolation:                             {},
	pgerrcode.SerializationFailure:                          {},
	pgerrcode.DeadlockDetected:                              {},
	pgerrcode.LockNotAvailable:                              {},
	pgerrcode.TooManyConnections:                            {},
	pgerrcode.AdminShutdown:                                 {},
	pgerrcode.CrashShutdown:                                 {},
	pgerrcode.CannotConnectNow:                              {},
	pgerrcode.QueryCanceled:                                 {},
}

// New returns a Postgres-backed sink.
func New(db *sql.DB) *Sink {
	return &Sink{db: db}
}

// HandleBatch writes the batch transactionally, retrying transient errors.
func (s *Sink) HandleBatch(ctx context.Context, rows []reporting.Row) error {
	if len(rows) == 0 {
		return nil
	}

	const q = `
INSERT INTO report_rows (reported_at, kind, grp, name, tags, fields)
VALUES ($1, $2, $3, $4, $5, $6);`

	attempt := func() error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback()
		}()

		for _, row := range rows {
			tags, err := json.Marshal(row.Tags)
			if err != nil {
				return fmt.Errorf("encode tags: %w", err)
			}
			fields, err := json.Marshal(row.Fields)
			if err != nil {
				return fmt.Errorf("encode fields: %w", err)
			}
			if _, err := tx.ExecContext(ctx, q,
				row.Time, row.Kind, row.Group, row.Name, tags, fields); err != nil {
				return err
			}
		}
		return tx.Commit()
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, attempt)
}

// Ping verifies the database connection using a short-lived context.
func (s *Sink) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	op := func() error {
		return s.db.PingContext(ctx)
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op)
}

// IsRetryable reports whether the error should trigger a retry according
// to Postgres semantics.
func IsRetryable(err error) bool {
	return isRetryablePG(err)
}

func isRetryablePG(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return isRetryablePGCode(string(pqe.Code))
	}
	return false
}

func isRetryablePGCode(code string) bool {
	if _, ok := retryablePGCodes[code]; ok {
		return true
	}
	// Classes 08 (connection) and 40 (rollback) are transient.
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "40")
}
