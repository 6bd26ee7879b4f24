package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/omeyang/priorizai/internal/assist"
	"github.com/omeyang/priorizai/internal/server"
	"github.com/omeyang/priorizai/pkg/config/xconf"
	"github.com/omeyang/priorizai/pkg/lifecycle/xrun"
	"github.com/omeyang/priorizai/pkg/observability/xlog"
	"github.com/omeyang/priorizai/pkg/observability/xmetrics"
	"github.com/omeyang/priorizai/pkg/resilience/xquota"
)

// Name 服务名，用于日志与指标
const Name = "priorizai"

// App 组装好的服务
type App struct {
	cfg     Config
	conf    *xconf.Config
	logger  xlog.LoggerWithLevel
	gate    *xquota.Gate
	server  *server.Server
	prom    *xmetrics.PrometheusProvider
	closers []func() error
}

type options struct {
	logOutput io.Writer
}

type Option func(*options)

// WithLogOutput 覆盖日志输出，配置了轮转文件时不生效。
func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.logOutput = w
		}
	}
}

// New 按配置创建所有组件。conf 用于热更新，可为 nil。
func New(ctx context.Context, conf *xconf.Config, cfg Config, opts ...Option) (a *App, err error) {
	o := &options{logOutput: os.Stdout}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a = &App{cfg: cfg, conf: conf}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.Close(context.WithoutCancel(ctx)))
			a = nil
		}
	}()

	if err := a.buildLogger(o.logOutput); err != nil {
		return a, err
	}

	quotaOpts := []xquota.Option{xquota.WithLogger(a.logger)}
	assistOpts := []assist.ServiceOption{assist.WithLogger(a.logger)}
	var serverOpts []server.Option
	if cfg.Metrics.Enabled {
		prom, err := xmetrics.NewPrometheusProvider()
		if err != nil {
			return a, err
		}
		a.prom = prom
		observer, err := xmetrics.NewOTelObserver(
			xmetrics.WithInstrumentationName(Name),
			xmetrics.WithMeterProvider(prom.MeterProvider()),
		)
		if err != nil {
			return a, err
		}
		quotaOpts = append(quotaOpts, xquota.WithObserver(observer), xquota.WithMeterProvider(prom.MeterProvider()))
		assistOpts = append(assistOpts, assist.WithObserver(observer))
		serverOpts = append(serverOpts, server.WithMetricsHandler(prom.Handler()))
	}

	resolver, err := xquota.NewResolver(cfg.Resolver.Kind, cfg.Resolver.Header, cfg.Resolver.TrustedProxies)
	if err != nil {
		return a, err
	}
	quotaOpts = append(quotaOpts, xquota.WithResolver(resolver))
	if cfg.Store.ExhaustedCacheSize > 0 {
		quotaOpts = append(quotaOpts, xquota.WithExhaustedCache(cfg.Store.ExhaustedCacheSize, cfg.Store.ExhaustedCacheTTL))
	}

	store, closeStore, err := buildStore(ctx, cfg, a.logger)
	if err != nil {
		return a, err
	}
	a.gate = xquota.New(cfg.Quota, store, quotaOpts...)
	a.closers = append(a.closers, a.gate.Close, closeStore)
	if cerr := a.gate.ConfigErr(); cerr != nil {
		a.logger.Error(ctx, "quota gate misconfigured, all limited requests will be refused", xlog.Err(cerr))
	}

	llm, err := assist.NewClient(cfg.Assist, assist.WithClientLogger(a.logger))
	if err != nil {
		return a, err
	}
	if !llm.Configured() {
		a.logger.Warn(ctx, "OPENAI_API_KEY not set, assistant endpoints will fail")
	}

	serverOpts = append(serverOpts, server.WithLogger(a.logger))
	a.server, err = server.New(cfg.Server, a.gate, assist.NewService(llm, assistOpts...), serverOpts...)
	if err != nil {
		return a, err
	}
	return a, nil
}

func (a *App) buildLogger(out io.Writer) error {
	b := xlog.New().
		SetLevelString(a.cfg.Log.Level).
		SetFormat(a.cfg.Log.Format).
		SetEnrich(true).
		SetReplaceAttr(xlog.RedactKeys("secret", "api_key", "password", "authorization")).
		SetOutput(out)
	if a.cfg.Log.Rotation.Filename != "" {
		b = b.SetRotation(a.cfg.Log.Rotation)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return err
	}
	a.logger = logger
	a.closers = append(a.closers, cleanup)
	return nil
}

func (a *App) Config() Config { return a.cfg }

func (a *App) Logger() xlog.Logger { return a.logger }

func (a *App) Gate() *xquota.Gate { return a.gate }

func (a *App) Handler() http.Handler { return a.server.Handler() }

// Run 运行 HTTP 服务与配置热更新，直到 ctx 取消或收到信号。
func (a *App) Run(ctx context.Context, runOpts ...xrun.Option) error {
	opts := append([]xrun.Option{xrun.WithName(Name), xrun.WithLogger(a.logger)}, runOpts...)
	services := []xrun.Service{
		xrun.HTTPServer("http", a.server.HTTPServer(), a.cfg.Server.ShutdownTimeout),
	}
	if a.conf != nil && a.conf.Path() != "" {
		services = append(services, xrun.Func("config-watch", a.followConfig))
	}
	a.logger.Info(ctx, "server starting",
		xlog.Component(Name),
		slog.String("addr", a.server.Config().Addr),
		slog.String("store", a.gate.Backend()),
	)
	return xrun.Run(ctx, opts, services...)
}

// followConfig 监听配置文件，热更新每日配额。
func (a *App) followConfig(ctx context.Context) error {
	changes, err := xquota.NewXConfProvider(a.conf, "quota").Watch(ctx)
	if err != nil {
		a.logger.Warn(ctx, "config watch disabled", xlog.Err(err))
		<-ctx.Done()
		return nil
	}
	a.gate.Follow(changes)
	return nil
}

// Close 按创建的逆序释放资源，可重复调用。
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if a.prom != nil {
		errs = append(errs, a.prom.Shutdown(ctx))
		a.prom = nil
	}
	return errors.Join(errs...)
}
