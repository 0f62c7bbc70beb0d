// Package server exposes the coordinator's HTTP surface: report intake
// from workers plus health and inspection endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/metrika/pkg/remote"
	"github.com/vshulcz/metrika/pkg/reporting"
)

// Pinger is the health probe of an optional backing sink (e.g. Postgres).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler wires the aggregator into gin endpoints.
type Handler struct {
	agg    *remote.Aggregator
	last   *LastBatch
	pinger Pinger
}

// NewHandler builds the coordinator handler. pinger may be nil.
func NewHandler(agg *remote.Aggregator, last *LastBatch, pinger Pinger) *Handler {
	return &Handler{agg: agg, last: last, pinger: pinger}
}

// Report handles `POST /report` with a JSON interprocess report message.
func (h *Handler) Report(c *gin.Context) {
	var msg remote.Message
	dec := json.NewDecoder(c.Request.Body)
	if err := dec.Decode(&msg); err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	err := h.agg.Receive(c.Request.Context(), msg)
	switch {
	case err == nil:
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte("ok"))
	case errors.Is(err, remote.ErrWrongType):
		// Foreign traffic is ignored, not rejected.
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte("ignored"))
	case errors.Is(err, remote.ErrMalformed):
		c.String(http.StatusBadRequest, "bad request")
	default:
		c.String(http.StatusInternalServerError, "internal error")
	}
}

// Ping handles `GET /ping`, proxying to the sink health probe when set.
func (h *Handler) Ping(c *gin.Context) {
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request.Context()); err != nil {
			c.String(http.StatusInternalServerError, "sink ping error: %v", err)
			return
		}
	}
	c.String(http.StatusOK, "ok")
}

// LastJSON handles `GET /api/v1/last` with the most recent flushed batch.
func (h *Handler) LastJSON(c *gin.Context) {
	rows, at := h.last.Rows()
	c.JSON(http.StatusOK, gin.H{"time": at, "rows": rows})
}

// Index renders a basic HTML view of the last flushed batch.
func (h *Handler) Index(c *gin.Context) {
	rows, at := h.last.Rows()

	var sb strings.Builder
	sb.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>metrika</title>")
	sb.WriteString("<style>body{font-family:system-ui,Arial,sans-serif}table{border-collapse:collapse}td,th{border:1px solid #ddd;padding:6px 10px}</style>")
	sb.WriteString("</head><body>")
	sb.WriteString("<h1>Last report</h1>")
	if !at.IsZero() {
		sb.WriteString("<p>flushed at ")
		sb.WriteString(at.Format(time.RFC3339))
		sb.WriteString("</p>")
	}
	sb.WriteString("<table><tr><th>Kind</th><th>Name</th><th>Tags</th><th>Fields</th></tr>")
	for _, row := range rows {
		sb.WriteString("<tr><td>")
		sb.WriteString(row.Kind)
		sb.WriteString("</td><td>")
		sb.WriteString(row.Name)
		sb.WriteString("</td><td>")
		first := true
		for k, v := range row.Tags {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(v)
		}
		sb.WriteString("</td><td>")
		first = true
		for k, v := range row.Fields {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		}
		sb.WriteString("</td></tr>")
	}
	sb.WriteString("</table></body></html>")

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sb.String()))
}

// LastBatch is a reporting.Handler remembering the most recent flushed
// batch for the inspection endpoints.
type LastBatch struct {
	mu   sync.RWMutex
	rows []reporting.Row
	at   time.Time
}

var _ reporting.Handler = (*LastBatch)(nil)

// NewLastBatch creates an empty LastBatch.
func NewLastBatch() *LastBatch { return &LastBatch{} }

// HandleBatch replaces the remembered batch.
func (l *LastBatch) HandleBatch(_ context.Context, rows []reporting.Row) error {
	cp := append([]reporting.Row(nil), rows...)
	l.mu.Lock()
	l.rows = cp
	l.at = time.Now()
	l.mu.Unlock()
	return nil
}

// Rows returns the remembered batch and when it was flushed.
func (l *LastBatch) Rows() ([]reporting.Row, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]reporting.Row(nil), l.rows...), l.at
}
