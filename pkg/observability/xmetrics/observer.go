package xmetrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// Attr 直接使用 OTel 属性
type Attr = attribute.KeyValue

var (
	String = attribute.String
	Bool   = attribute.Bool
	Int    = attribute.Int
	Int64  = attribute.Int64
)

// Kind 跨度类型，对应 OTel SpanKind
type Kind uint8

const (
	KindInternal Kind = iota
	KindServer
	KindClient
)

// Status 写入 status 指标属性
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// SpanOptions Component 与 Operation 为空时记为 "unknown"。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result Status 为空时按 Err 推导。
type Result struct {
	Status Status
	Err    error
	Attrs  []Attr
}

func (r Result) status() Status {
	switch {
	case r.Status != "":
		return r.Status
	case r.Err != nil:
		return StatusError
	}
	return StatusOK
}

type Span interface {
	End(result Result)
}

// Observer 组件只依赖此接口打点，不直接接触 trace/metric SDK。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 什么也不记录
type NoopObserver struct{}

func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	return orBackground(ctx), noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(Result) {}

// Start 总是返回非 nil 的 ctx 和 Span，observer 可以为 nil。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	ctx = orBackground(ctx)
	if observer == nil {
		return ctx, noopSpan{}
	}
	next, span := observer.Start(ctx, opts)
	if span == nil {
		span = noopSpan{}
	}
	return orBackground(next, ctx), span
}

// orBackground 返回第一个非 nil 的 ctx
func orBackground(ctxs ...context.Context) context.Context {
	for _, c := range ctxs {
		if c != nil {
			return c
		}
	}
	return context.Background()
}
