package xquota

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricNameRequestsTotal    = "xquota.requests.total"
	metricNameRejectedTotal    = "xquota.rejected.total"
	metricNameStoreErrorsTotal = "xquota.store.errors.total"
	metricNameCheckDuration    = "xquota.check.duration"
)

// 判定结果标签值
const (
	outcomeAdmitted = "admitted"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// Metrics 配额网关指标
type Metrics struct {
	requestsTotal    metric.Int64Counter
	rejectedTotal    metric.Int64Counter
	storeErrorsTotal metric.Int64Counter
	checkDuration    metric.Float64Histogram
}

// NewMetrics meterProvider 为 nil 时返回 nil（不收集指标）。
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}
	meter := meterProvider.Meter("xquota")

	requestsTotal, err := meter.Int64Counter(
		metricNameRequestsTotal,
		metric.WithDescription("配额判定总数"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	rejectedTotal, err := meter.Int64Counter(
		metricNameRejectedTotal,
		metric.WithDescription("超出每日配额被拒绝的请求数"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	storeErrorsTotal, err := meter.Int64Counter(
		metricNameStoreErrorsTotal,
		metric.WithDescription("计数存储错误数"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}
	checkDuration, err := meter.Float64Histogram(
		metricNameCheckDuration,
		metric.WithDescription("配额判定耗时"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5,
		),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestsTotal:    requestsTotal,
		rejectedTotal:    rejectedTotal,
		storeErrorsTotal: storeErrorsTotal,
		checkDuration:    checkDuration,
	}, nil
}

// RecordDecision outcome 取 admitted / rejected / error。
func (m *Metrics) RecordDecision(ctx context.Context, backend, outcome string, code Code, duration time.Duration) {
	if m == nil {
		return
	}
	metricsCtx := context.WithoutCancel(ctx)

	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("outcome", outcome),
		attribute.String("code", string(code)),
	)
	m.requestsTotal.Add(metricsCtx, 1, attrs)
	m.checkDuration.Record(metricsCtx, duration.Seconds(), attrs)

	switch outcome {
	case outcomeRejected:
		m.rejectedTotal.Add(metricsCtx, 1, metric.WithAttributes(attribute.String("backend", backend)))
	case outcomeError:
		if code == CodeStoreUnavailable {
			m.storeErrorsTotal.Add(metricsCtx, 1, metric.WithAttributes(attribute.String("backend", backend)))
		}
	}
}
