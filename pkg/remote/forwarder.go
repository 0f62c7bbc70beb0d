package remote

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/metrika/internal/misc"
	"github.com/vshulcz/metrika/pkg/reporting"
)

// ForwarderConfig configures a worker-side forwarder.
type ForwarderConfig struct {
	// URL is the coordinator report endpoint, e.g. http://localhost:8080/report.
	URL string
	// Worker names the originating process; part of the message identity.
	Worker string
	// ReportingContext groups messages from reporters that should be
	// aggregated together.
	ReportingContext string
	// TargetReporter tags which coordinator-side reporter type should
	// replay the rows.
	TargetReporter string
	// Window aligns worker ticks onto a shared context bucket; use the
	// report interval. Zero disables bucketing.
	Window time.Duration
	// Key enables HMAC signing of the request body when non-empty.
	Key string
	// Tags are forwarded verbatim in the message envelope.
	Tags map[string]string
	// Client defaults to http.DefaultClient.
	Client *http.Client
	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

// Forwarder is a reporting.Handler that serializes accepted batches into
// interprocess report messages and POSTs them to the coordinator. Send
// failures are handler failures: logged by the reporter, never fatal.
type Forwarder struct {
	cfg  ForwarderConfig
	seq  atomic.Uint64
	bufs *misc.Pool[*bytes.Buffer]
}

var _ reporting.Handler = (*Forwarder)(nil)

// NewForwarder creates a forwarder for the given coordinator endpoint.
func NewForwarder(cfg ForwarderConfig) *Forwarder {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Forwarder{
		cfg:  cfg,
		bufs: misc.NewPool(func() *bytes.Buffer { return &bytes.Buffer{} }),
	}
}

// Build assembles the wire message for one batch without sending it.
func (f *Forwarder) Build(rows []reporting.Row) Message {
	date := time.Now()
	if len(rows) > 0 {
		date = rows[0].Time
	}
	ctx := f.cfg.ReportingContext
	if f.cfg.Window > 0 {
		ctx = fmt.Sprintf("%s@%d", ctx, date.Truncate(f.cfg.Window).Unix())
	}
	return Message{
		Ctx:            ctx,
		Date:           date,
		Tags:           f.cfg.Tags,
		Metrics:        SplitRows(rows),
		TargetReporter: f.cfg.TargetReporter,
		Type:           MessageType,
		Worker:         f.cfg.Worker,
		Seq:            f.seq.Add(1),
	}
}

// HandleBatch forwards one batch, gzip-compressed and optionally signed,
// retrying transient transport failures.
func (f *Forwarder) HandleBatch(ctx context.Context, rows []reporting.Row) error {
	if len(rows) == 0 {
		return nil
	}
	msg := f.Build(rows)

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode report message: %w", err)
	}

	buf := f.bufs.Get()
	defer f.bufs.Put(buf)
	gzw := gzip.NewWriter(buf)
	if _, err := gzw.Write(raw); err != nil {
		_ = gzw.Close()
		return err
	}
	if err := gzw.Close(); err != nil {
		return err
	}
	body := buf.Bytes()

	op := func() error {
		return f.post(ctx, body, raw)
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryableSend, op); err != nil {
		return fmt.Errorf("forward report %s/%d: %w", msg.Worker, msg.Seq, err)
	}
	f.cfg.Logger.Debug("report forwarded",
		zap.String("ctx", msg.Ctx), zap.Uint64("seq", msg.Seq), zap.Int("rows", len(rows)))
	return nil
}

func (f *Forwarder) post(ctx context.Context, gzBody, raw []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, bytes.NewReader(gzBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if f.cfg.Key != "" {
		req.Header.Set("HashSHA256", misc.SignSHA256(raw, f.cfg.Key))
	}

	resp, err := f.cfg.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coordinator status: %s", resp.Status)
	}
	return nil
}

// isRetryableSend treats every transport error as transient; HTTP-level
// rejections (bad status) are retried too since the coordinator may still
// be starting up.
func isRetryableSend(err error) bool { return err != nil }
