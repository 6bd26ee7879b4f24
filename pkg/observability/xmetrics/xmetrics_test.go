package xmetrics_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/priorizai/pkg/context/xctx"
	"github.com/omeyang/priorizai/pkg/observability/xmetrics"
)

func TestStart_NilObserver(t *testing.T) {
	//nolint:staticcheck // 验证 nil ctx 兜底
	ctx, span := xmetrics.Start(nil, nil, xmetrics.SpanOptions{})
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End(xmetrics.Result{})
}

func TestOTelObserver_RecordsSpanAndMetrics(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background()) //nolint:errcheck // cleanup
		_ = mp.Shutdown(context.Background()) //nolint:errcheck // cleanup
	})

	obs, err := xmetrics.NewOTelObserver(
		xmetrics.WithTracerProvider(tp),
		xmetrics.WithMeterProvider(mp),
	)
	require.NoError(t, err)

	ctx, span := obs.Start(context.Background(), xmetrics.SpanOptions{
		Component: "xquota",
		Operation: "consume",
		Attrs:     []xmetrics.Attr{xmetrics.String("backend", "redis")},
	})
	assert.Len(t, xctx.TraceID(ctx), 32, "trace id synced into xctx")

	span.End(xmetrics.Result{Err: errors.New("store down")})
	span.End(xmetrics.Result{}) // 幂等

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "xquota.consume", ended[0].Name())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "priorizai.operation.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
				status, _ := dp.Attributes.Value("status")
				assert.Equal(t, "error", status.AsString())
			}
		}
	}
	assert.Equal(t, int64(1), total)
}

func TestPrometheusProvider_Handler(t *testing.T) {
	p, err := xmetrics.NewPrometheusProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) }) //nolint:errcheck // cleanup

	counter, err := p.MeterProvider().Meter("test").Int64Counter("quota_checks")
	require.NoError(t, err)
	counter.Add(context.Background(), 3, metric.WithAttributes())

	srv := httptest.NewServer(p.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL) //nolint:noctx // test
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck // test
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "quota_checks_total")
}
