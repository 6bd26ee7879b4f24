// Package xmetrics 提供统一的观测接口（Observer/Span）与 OpenTelemetry 实现。
//
// 组件通过 [Start] 打点，nil Observer 自动退化为空实现：
//
//	ctx, span := xmetrics.Start(ctx, observer, xmetrics.SpanOptions{
//		Component: "xquota",
//		Operation: "consume",
//	})
//	defer func() { span.End(xmetrics.Result{Err: err}) }()
//
// [NewPrometheusProvider] 把 OTel 指标以 Prometheus 格式暴露在 /metrics。
package xmetrics
