package xquota

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/priorizai/pkg/observability/xlog"
	"github.com/omeyang/priorizai/pkg/observability/xmetrics"
)

type options struct {
	logger        xlog.Logger
	observer      xmetrics.Observer
	meterProvider metric.MeterProvider
	resolver      AddressResolver
	now           func() time.Time
	cacheSize     int
	cacheTTL      time.Duration
	onReject      func(d *Decision)
}

// Option 网关选项
type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger:   xlog.Discard(),
		observer: xmetrics.NoopObserver{},
		resolver: HeaderResolver(),
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置链路观测
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithMeterProvider 启用指标。指标注册失败只记录日志，不影响判定。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithResolver 设置 Check 使用的地址解析器，默认 HeaderResolver。
func WithResolver(r AddressResolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithClock 注入当前时间（测试用）
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithExhaustedCache 在进程内缓存已耗尽的键，size <= 0 关闭。
// 键包含日期，跨日后自然不再命中。
//
// 缓存只在本进程内：其他进程对存储的 Reset（如命令行 quota --reset）
// 要等条目过期（ttl），或本进程 Gate.Reset/Peek 该键后才生效。
func WithExhaustedCache(size int, ttl time.Duration) Option {
	return func(o *options) {
		o.cacheSize = size
		o.cacheTTL = ttl
	}
}

// WithOnReject 超出配额时的回调
func WithOnReject(fn func(d *Decision)) Option {
	return func(o *options) {
		o.onReject = fn
	}
}
