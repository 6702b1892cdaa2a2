package integration

import (
	"context"
	"log/slog"
	"sync"
)

// recordingHandler is a minimal slog.Handler that records the "op" attribute
// of every record it handles, so tests can assert on which replication
// calls fired without parsing formatted log lines.
type recordingHandler struct {
	mu  sync.Mutex
	ops []string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{}
}

func slogNew(h slog.Handler) *slog.Logger {
	return slog.New(h)
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "op" {
			h.ops = append(h.ops, a.Value.String())
		}
		return true
	})
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }
