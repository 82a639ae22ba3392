package logging

import (
	"context"
	"log/slog"
)

// mirrorHandler writes through primary and copies every record it accepts to
// mirror. The daemon uses it to feed the stream hub alongside the console and
// log file output.
type mirrorHandler struct {
	primary slog.Handler
	mirror  slog.Handler
}

func newMirrorHandler(primary, mirror slog.Handler) slog.Handler {
	if mirror == nil {
		return primary
	}
	if primary == nil {
		return mirror
	}
	return &mirrorHandler{primary: primary, mirror: mirror}
}

func (h *mirrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.mirror.Enabled(ctx, level)
}

func (h *mirrorHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.mirror.Enabled(ctx, record.Level) {
		// The hub never fails; a mirror error must not hide the primary write.
		_ = h.mirror.Handle(ctx, record.Clone())
	}
	if !h.primary.Enabled(ctx, record.Level) {
		return nil
	}
	return h.primary.Handle(ctx, record)
}

func (h *mirrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mirrorHandler{primary: h.primary.WithAttrs(attrs), mirror: h.mirror.WithAttrs(attrs)}
}

func (h *mirrorHandler) WithGroup(name string) slog.Handler {
	return &mirrorHandler{primary: h.primary.WithGroup(name), mirror: h.mirror.WithGroup(name)}
}
