package reporting

import (
	"context"
	"sync"

	"github.com/vshulcz/metrika/pkg/metrics"
)

// MultiHandler fans a batch out to several sinks. One failing sink never
// hides the batch from the others; failures go to the error callback.
type MultiHandler struct {
	mu       sync.RWMutex
	handlers []Handler
	onError  func(error)
}

var _ Handler = (*MultiHandler)(nil)

// NewMultiHandler constructs a fan-out over the given handlers.
func NewMultiHandler(handlers ...Handler) *MultiHandler {
	cp := append([]Handler(nil), handlers...)
	return &MultiHandler{handlers: cp}
}

// Attach registers additional handlers.
func (m *MultiHandler) Attach(handlers ...Handler) {
	if len(handlers) == 0 {
		return
	}
	m.mu.Lock()
	m.handlers = append(m.handlers, handlers...)
	m.mu.Unlock()
}

// SetErrorHandler configures a callback for per-sink failures.
func (m *MultiHandler) SetErrorHandler(fn func(error)) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

// HandleBatch delivers rows to every handler, isolating failures.
func (m *MultiHandler) HandleBatch(ctx context.Context, rows []Row) error {
	m.mu.RLock()
	handlers := append([]Handler(nil), m.handlers...)
	onError := m.onError
	m.mu.RUnlock()

	for _, h := range handlers {
		if h == nil {
			continue
		}
		if err := h.HandleBatch(ctx, rows); err != nil && onError != nil {
			onError(err)
		}
	}
	return nil
}

// Prepare forwards one-time setup to every handler that wants it.
func (m *MultiHandler) Prepare(ctx context.Context, ids []metrics.ID) error {
	m.mu.RLock()
	handlers := append([]Handler(nil), m.handlers...)
	onError := m.onError
	m.mu.RUnlock()

	for _, h := range handlers {
		p, ok := h.(Preparer)
		if !ok {
			continue
		}
		if err := p.Prepare(ctx, ids); err != nil && onError != nil {
			onError(err)
		}
	}
	return nil
}
