package xmetrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusProvider 以 Prometheus pull 方式暴露 OTel 指标。
//
// 每个实例使用独立的 prometheus.Registry，测试中可并存多个实例。
type PrometheusProvider struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
}

// NewPrometheusProvider 创建基于 otel prometheus exporter 的 MeterProvider。
func NewPrometheusProvider() (*PrometheusProvider, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("xmetrics: create prometheus exporter: %w", err)
	}
	return &PrometheusProvider{
		registry: registry,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
	}, nil
}

// MeterProvider 返回供 Observer 与业务指标使用的 MeterProvider。
func (p *PrometheusProvider) MeterProvider() metric.MeterProvider {
	return p.provider
}

// Handler 返回 /metrics 处理器
func (p *PrometheusProvider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown 刷新并关闭 MeterProvider
func (p *PrometheusProvider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}
