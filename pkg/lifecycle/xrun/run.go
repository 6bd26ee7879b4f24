package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/priorizai/pkg/observability/xlog"
)

// Service 一个长期运行的组件。Run 应在 ctx 取消后尽快返回。
type Service struct {
	Name string
	Run  func(ctx context.Context) error
}

// Func 用函数构造 Service
func Func(name string, fn func(ctx context.Context) error) Service {
	return Service{Name: name, Run: fn}
}

// Run 并发运行所有服务，直到任一服务退出、ctx 取消或收到信号。
//
// 任一服务返回后其余服务的 ctx 被取消。收到信号时返回 *SignalError；
// 由 ctx 取消或服务正常结束导致的退出返回 nil。
func Run(ctx context.Context, opts []Option, services ...Service) error {
	if ctx == nil {
		ctx = context.Background()
	}
	o := applyOptions(opts)

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	eg, egCtx := errgroup.WithContext(runCtx)

	if !o.noSignalHandler {
		eg.Go(func() error {
			return waitSignal(egCtx, o, cancel)
		})
	}
	for _, svc := range services {
		eg.Go(func() error {
			return runService(egCtx, o, svc)
		})
	}

	err := eg.Wait()
	o.logger.Debug(ctx, "all services stopped", slog.String("group", o.name))

	if cause := context.Cause(runCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	if errors.Is(err, context.Canceled) && runCtx.Err() != nil {
		return nil
	}
	return err
}

// runService 服务自身的启停日志；ctx 取消引起的退出不记为错误。
func runService(ctx context.Context, o *options, svc Service) error {
	if svc.Run == nil {
		return ErrNilFunc
	}
	name := svc.Name
	if name == "" {
		name = "anonymous"
	}
	attrs := []slog.Attr{slog.String("group", o.name), slog.String("service", name)}
	o.logger.Debug(ctx, "service starting", attrs...)
	err := svc.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		o.logger.Debug(ctx, "service stopped", attrs...)
	default:
		o.logger.Error(ctx, "service exited with error", append(attrs, xlog.Err(err))...)
	}
	return err
}

func waitSignal(ctx context.Context, o *options, cancel context.CancelCauseFunc) error {
	signals := o.signals
	if len(signals) == 0 {
		signals = DefaultSignals()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	var sig os.Signal
	select {
	case sig = <-testSigChan(ctx):
	case sig = <-sigCh:
	case <-ctx.Done():
		return nil
	}
	o.logger.Info(ctx, "received signal, shutting down",
		slog.String("group", o.name), slog.String("signal", sig.String()))
	cancel(&SignalError{Signal: sig})
	return nil
}
