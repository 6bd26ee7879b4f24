package xmetrics

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/priorizai/pkg/context/xctx"
)

// DefaultInstrumentationName 未指定时的 tracer/meter 名称
const DefaultInstrumentationName = "github.com/omeyang/priorizai"

const (
	metricTotal    = "priorizai.operation.total"
	metricDuration = "priorizai.operation.duration"
)

// ErrInstrument 创建 counter 或 histogram 失败
var ErrInstrument = errors.New("xmetrics: create instrument")

// OTelObserver 每个跨度对应一个 OTel span，结束时按 component/operation/status
// 累加 priorizai.operation.total 并记录 priorizai.operation.duration（秒）。
type OTelObserver struct {
	name     string
	tp       trace.TracerProvider
	mp       metric.MeterProvider
	tracer   trace.Tracer
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

var _ Observer = (*OTelObserver)(nil)

// Option OTelObserver 选项
type Option func(*OTelObserver)

func WithInstrumentationName(name string) Option {
	return func(o *OTelObserver) { o.name = cmp.Or(name, o.name) }
}

// WithTracerProvider 默认 otel.GetTracerProvider()
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *OTelObserver) {
		if tp != nil {
			o.tp = tp
		}
	}
}

// WithMeterProvider 默认 otel.GetMeterProvider()
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *OTelObserver) {
		if mp != nil {
			o.mp = mp
		}
	}
}

func NewOTelObserver(opts ...Option) (*OTelObserver, error) {
	o := &OTelObserver{
		name: DefaultInstrumentationName,
		tp:   otel.GetTracerProvider(),
		mp:   otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	meter := o.mp.Meter(o.name)
	var err error
	if o.total, err = meter.Int64Counter(metricTotal,
		metric.WithDescription("operations by component, operation and status"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInstrument, metricTotal, err)
	}
	if o.duration, err = meter.Float64Histogram(metricDuration,
		metric.WithDescription("operation latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInstrument, metricDuration, err)
	}
	o.tracer = o.tp.Tracer(o.name)
	return o, nil
}

func (o *OTelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	ctx = orBackground(ctx)
	base := []attribute.KeyValue{
		attribute.String("component", cmp.Or(opts.Component, "unknown")),
		attribute.String("operation", cmp.Or(opts.Operation, "unknown")),
	}
	ctx, span := o.tracer.Start(ctx, base[0].Value.AsString()+"."+base[1].Value.AsString(),
		trace.WithSpanKind(spanKind(opts.Kind)),
		trace.WithAttributes(base...),
		trace.WithAttributes(opts.Attrs...),
	)
	// 日志通过 xctx 拿到同一个 trace_id
	if sc := span.SpanContext(); sc.HasTraceID() && xctx.TraceID(ctx) == "" {
		ctx = xctx.WithTraceID(ctx, sc.TraceID().String())
	}
	return ctx, &otelSpan{o: o, ctx: ctx, span: span, base: base, began: time.Now()}
}

type otelSpan struct {
	o     *OTelObserver
	ctx   context.Context
	span  trace.Span
	base  []attribute.KeyValue
	began time.Time
	ended atomic.Bool
}

// End 只有第一次调用生效
func (s *otelSpan) End(result Result) {
	if s.ended.Swap(true) {
		return
	}
	status := result.status()
	if result.Err != nil {
		s.span.RecordError(result.Err)
	}
	switch {
	case status != StatusError:
		s.span.SetStatus(codes.Ok, "")
	case result.Err != nil:
		s.span.SetStatus(codes.Error, result.Err.Error())
	default:
		s.span.SetStatus(codes.Error, "operation failed")
	}
	s.span.SetAttributes(result.Attrs...)
	s.span.End()

	// 调用方 ctx 可能已取消
	ctx := context.WithoutCancel(s.ctx)
	set := metric.WithAttributes(append(s.base, attribute.String("status", string(status)))...)
	s.o.total.Add(ctx, 1, set)
	s.o.duration.Record(ctx, time.Since(s.began).Seconds(), set)
}

func spanKind(k Kind) trace.SpanKind {
	switch k {
	case KindServer:
		return trace.SpanKindServer
	case KindClient:
		return trace.SpanKindClient
	}
	return trace.SpanKindInternal
}
