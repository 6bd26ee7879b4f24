package xquota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/omeyang/priorizai/pkg/context/xctx"
	"github.com/omeyang/priorizai/pkg/observability/xlog"
	"github.com/omeyang/priorizai/pkg/observability/xmetrics"
	"github.com/omeyang/priorizai/pkg/util/xnet"
)

// Gate 每地址每日配额网关。
//
// 每次判定：规范化地址，计算带密钥的哈希，在计数存储上对
// "{prefix}:{day}:{hash}" 原子地执行"未超额则递增"。
// 任何无法确认配额的情况都返回错误，调用方据此拒绝请求。
type Gate struct {
	cfg     Config
	store   Store
	hasher  *Hasher
	clock   *DayClock
	cache   *exhaustedCache
	opts    *options
	metrics *Metrics

	limit  atomic.Int64
	cfgErr error
	closed atomic.Bool
}

// New 创建网关。
//
// 配置无效或 store 为 nil 时仍返回网关，但每次判定都返回 ErrConfiguration，
// 通过 ConfigErr 可在启动时提前发现。
func New(cfg Config, store Store, opts ...Option) *Gate {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	cfg = cfg.withDefaults()
	g := &Gate{cfg: cfg, store: store, opts: o}
	g.limit.Store(int64(cfg.Limit))
	g.cfgErr = g.init()

	if g.cfgErr != nil {
		o.logger.Error(context.Background(), "xquota: gate misconfigured, all requests will be refused",
			xlog.Component("xquota"), xlog.Err(g.cfgErr))
		return g
	}

	metrics, err := NewMetrics(o.meterProvider)
	if err != nil {
		o.logger.Warn(context.Background(), "xquota: metrics disabled", xlog.Err(err))
	}
	g.metrics = metrics
	g.cache = newExhaustedCache(o.cacheSize, o.cacheTTL)
	return g
}

func (g *Gate) init() error {
	if err := g.cfg.Validate(); err != nil {
		return err
	}
	if g.store == nil {
		return configError("store is nil")
	}
	hasher, err := NewHasher(g.cfg.Secret)
	if err != nil {
		return err
	}
	clock, err := NewDayClock(g.cfg.Timezone, g.opts.now)
	if err != nil {
		return err
	}
	g.hasher = hasher
	g.clock = clock
	return nil
}

// ConfigErr 构造时发现的配置问题，nil 表示网关可用。
func (g *Gate) ConfigErr() error { return g.cfgErr }

// Config 生效的配置（已填充默认值）
func (g *Gate) Config() Config { return g.cfg }

// Clock 日界时钟，配置无效时为 nil。
func (g *Gate) Clock() *DayClock { return g.clock }

// Backend 存储类型名
func (g *Gate) Backend() string {
	if g.store == nil {
		return "none"
	}
	return g.store.Type()
}

// Limit 当前配置的每日配额
func (g *Gate) Limit() int { return int(g.limit.Load()) }

// UpdateLimit 运行时修改配额（配置热更新），已耗尽缓存随之清空。
func (g *Gate) UpdateLimit(n int) error {
	if n < 1 {
		return configError("limit must be >= 1, got %d", n)
	}
	if old := g.limit.Swap(int64(n)); old != int64(n) {
		g.cache.purge()
		g.opts.logger.Info(context.Background(), "xquota: limit updated",
			slog.Int64("from", old), slog.Int("to", n))
	}
	return nil
}

func (g *Gate) ready(limit int) error {
	if g.closed.Load() {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, ErrGateClosed)
	}
	if g.cfgErr != nil {
		return g.cfgErr
	}
	if limit < 1 {
		return configError("limit must be >= 1, got %d", limit)
	}
	return nil
}

// CheckAndConsume 判定 rawAddress 当日是否还有配额，有则消耗一个单位。
//
// 返回值：
//   - 放行：Decision.Admitted=true，Remaining 为消耗后的剩余量
//   - 超额：Decision.Admitted=false，Remaining=0，err 为 nil
//   - ErrConfiguration / ErrAddressUnresolved / ErrStoreUnavailable：调用方必须拒绝请求
//
// 放行后的失败不退还配额。
func (g *Gate) CheckAndConsume(ctx context.Context, rawAddress string, limit int) (d *Decision, err error) {
	ctx = orBackground(ctx)
	start := time.Now()
	backend := g.Backend()

	ctx, span := xmetrics.Start(ctx, g.opts.observer, xmetrics.SpanOptions{
		Component: "xquota",
		Operation: "check_and_consume",
		Kind:      xmetrics.KindInternal,
		Attrs: []xmetrics.Attr{
			xmetrics.String("quota.backend", backend),
			xmetrics.Int("quota.limit", limit),
		},
	})
	defer func() {
		g.finish(ctx, span, backend, d, err, time.Since(start))
	}()

	if err = g.ready(limit); err != nil {
		return nil, err
	}

	addr, err := xnet.NormalizeAddr(rawAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAddressUnresolved, err)
	}
	hash, err := g.hasher.Hash(addr)
	if err != nil {
		return nil, err
	}
	ctx = xctx.WithClientHash(ctx, hash)

	now := g.clock.Now()
	key := Key{Prefix: g.cfg.KeyPrefix, Day: g.clock.Day(now), Hash: hash}
	keyStr := key.String()
	resetAt := g.clock.NextReset(now)

	if g.cache.exhausted(keyStr, int64(limit)) {
		return g.reject(rejected(limit, int64(limit), key.Day, now, resetAt, keyStr)), nil
	}

	usage, err := g.consume(ctx, key, int64(limit))
	if err != nil {
		return nil, err
	}
	if !usage.Admitted {
		g.cache.mark(keyStr, int64(limit))
		return g.reject(rejected(limit, usage.Count, key.Day, now, resetAt, keyStr)), nil
	}
	return admitted(limit, usage.Count, key.Day, resetAt, keyStr), nil
}

// Check 用解析器从请求中确定地址，按当前配额判定。
func (g *Gate) Check(ctx context.Context, r *http.Request) (*Decision, error) {
	addr, err := g.opts.resolver.Resolve(r)
	if err != nil {
		if rerr := g.ready(g.Limit()); rerr != nil {
			return nil, rerr
		}
		if !errors.Is(err, ErrAddressUnresolved) {
			err = fmt.Errorf("%w: %w", ErrAddressUnresolved, err)
		}
		g.metrics.RecordDecision(ctx, g.Backend(), outcomeError, CodeAddressUnresolved, 0)
		g.opts.logger.Warn(ctx, "xquota: client address unresolved", xlog.Component("xquota"), xlog.Err(err))
		return nil, err
	}
	return g.CheckAndConsume(ctx, addr, g.Limit())
}

func (g *Gate) consume(ctx context.Context, key Key, limit int64) (Usage, error) {
	if g.cfg.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.StoreTimeout)
		defer cancel()
	}
	usage, err := g.store.Consume(ctx, key, limit, g.cfg.TTL)
	if err != nil {
		return Usage{}, storeError(err)
	}
	return usage, nil
}

func (g *Gate) reject(d *Decision) *Decision {
	if g.opts.onReject != nil {
		g.opts.onReject(d)
	}
	return d
}

func (g *Gate) finish(ctx context.Context, span xmetrics.Span, backend string, d *Decision, err error, elapsed time.Duration) {
	outcome := outcomeError
	code := CodeOf(err)
	result := xmetrics.Result{Err: err}
	if d != nil {
		outcome = outcomeAdmitted
		if !d.Admitted {
			outcome = outcomeRejected
			code = CodeRateLimited
		}
		result.Attrs = []xmetrics.Attr{
			xmetrics.Bool("quota.admitted", d.Admitted),
			xmetrics.Int("quota.remaining", d.Remaining),
			xmetrics.String("quota.day", d.Day),
		}
	}
	span.End(result)
	g.metrics.RecordDecision(ctx, backend, outcome, code, elapsed)

	attrs := []slog.Attr{xlog.Component("xquota"), slog.String("backend", backend), xlog.Duration(elapsed)}
	switch outcome {
	case outcomeError:
		g.opts.logger.Warn(ctx, "xquota: check failed", append(attrs, xlog.Code(string(code)), xlog.Err(err))...)
	case outcomeRejected:
		g.opts.logger.Info(ctx, "xquota: daily quota exhausted",
			append(attrs, xlog.Day(d.Day), slog.Int("limit", d.Limit), xlog.Count(d.Count))...)
	default:
		g.opts.logger.Debug(ctx, "xquota: admitted",
			append(attrs, xlog.Day(d.Day), slog.Int("remaining", d.Remaining))...)
	}
}

// Quota 某地址当日配额的只读快照
type Quota struct {
	Limit     int       `json:"limit"`
	Used      int64     `json:"used"`
	Remaining int       `json:"remaining"`
	Day       string    `json:"day"`
	ResetAt   time.Time `json:"resetAt"`
	Key       string    `json:"key"`
}

func (g *Gate) key(rawAddress string) (Key, time.Time, error) {
	if err := g.ready(g.Limit()); err != nil {
		return Key{}, time.Time{}, err
	}
	addr, err := xnet.NormalizeAddr(rawAddress)
	if err != nil {
		return Key{}, time.Time{}, fmt.Errorf("%w: %w", ErrAddressUnresolved, err)
	}
	hash, err := g.hasher.Hash(addr)
	if err != nil {
		return Key{}, time.Time{}, err
	}
	now := g.clock.Now()
	return Key{Prefix: g.cfg.KeyPrefix, Day: g.clock.Day(now), Hash: hash}, now, nil
}

// Peek 查询 rawAddress 当日用量，不消耗配额。用量低于配额时顺带清除该键的耗尽缓存。
func (g *Gate) Peek(ctx context.Context, rawAddress string) (*Quota, error) {
	ctx = orBackground(ctx)
	key, now, err := g.key(rawAddress)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.StoreTimeout)
	defer cancel()
	used, err := g.store.Peek(ctx, key)
	if err != nil {
		return nil, storeError(err)
	}
	limit := g.Limit()
	if used < int64(limit) {
		// 计数可能已被其他进程清零（如命令行 quota --reset）
		g.cache.forget(key.String())
	}
	remaining := max(int64(limit)-used, 0)
	return &Quota{
		Limit:     limit,
		Used:      used,
		Remaining: int(remaining),
		Day:       key.Day,
		ResetAt:   g.clock.NextReset(now),
		Key:       key.String(),
	}, nil
}

// Reset 清除 rawAddress 当日计数（运维操作）。
func (g *Gate) Reset(ctx context.Context, rawAddress string) error {
	ctx = orBackground(ctx)
	key, _, err := g.key(rawAddress)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.StoreTimeout)
	defer cancel()
	if err := g.store.Reset(ctx, key); err != nil {
		return storeError(err)
	}
	g.cache.forget(key.String())
	return nil
}

// Ping 存储探活，用于就绪检查。
func (g *Gate) Ping(ctx context.Context) error {
	ctx = orBackground(ctx)
	if err := g.ready(g.Limit()); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.StoreTimeout)
	defer cancel()
	return storeError(Ping(ctx, g.store))
}

// Close 关闭网关及其存储，之后的判定返回 ErrStoreUnavailable。
func (g *Gate) Close() error {
	if g.closed.Swap(true) {
		return nil
	}
	if g.store == nil {
		return nil
	}
	return g.store.Close()
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
