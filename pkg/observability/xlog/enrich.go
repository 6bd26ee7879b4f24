package xlog

import (
	"context"
	"log/slog"

	"github.com/omeyang/priorizai/pkg/context/xctx"
)

// ctxHandler 记录时追加 ctx 中的请求字段（request_id、trace_id、client_hash），缺失的跳过。
type ctxHandler struct {
	next slog.Handler
}

func (h ctxHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf [3]slog.Attr
	if attrs := xctx.AppendLogAttrs(buf[:0], ctx); len(attrs) > 0 {
		// Record 可能被其他 handler 共享，追加前先复制
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

func (h ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ctxHandler{next: h.next.WithAttrs(attrs)}
}

func (h ctxHandler) WithGroup(name string) slog.Handler {
	return ctxHandler{next: h.next.WithGroup(name)}
}
