package xretry

import (
	"context"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// Retryer 在 avast/retry-go/v5 之上按 attempts 和 Backoff 重试，只重试 IsRetryable 的错误。
type Retryer struct {
	attempts int
	backoff  Backoff
	onRetry  func(attempt int, err error)
}

// RetryerOption 执行器选项
type RetryerOption func(*Retryer)

// WithAttempts 总尝试次数（含首次），小于 1 按 1 处理。
func WithAttempts(n int) RetryerOption {
	return func(r *Retryer) { r.attempts = max(n, 1) }
}

func WithBackoff(b Backoff) RetryerOption {
	return func(r *Retryer) { r.backoff = b }
}

// WithOnRetry 每次决定重试时调用，attempt 为已失败次数。
func WithOnRetry(f func(attempt int, err error)) RetryerOption {
	return func(r *Retryer) { r.onRetry = f }
}

// NewRetryer 默认 3 次，DefaultBackoff。
func NewRetryer(opts ...RetryerOption) *Retryer {
	r := &Retryer{attempts: 3, backoff: DefaultBackoff}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Attempts 总尝试次数
func (r *Retryer) Attempts() int { return r.attempts }

// Do 返回最后一次错误。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	_, err := DoWithResult(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult Do 的泛型版本
func DoWithResult[T any](ctx context.Context, r *Retryer, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	switch {
	case r == nil:
		return zero, ErrNilRetryer
	case ctx == nil:
		return zero, ErrNilContext
	case fn == nil:
		return zero, ErrNilFunc
	}
	return retry.NewWithData[T](r.options(ctx)...).Do(func() (T, error) {
		return fn(ctx)
	})
}

func (r *Retryer) options(ctx context.Context) []retry.Option {
	var failures atomic.Int64
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(max(r.attempts, 1))),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			n := failures.Add(1)
			return ctx.Err() == nil && IsRetryable(err) && int(n) < r.attempts
		}),
		retry.DelayType(func(_ uint, _ error, _ retry.DelayContext) time.Duration {
			return r.backoff.Delay(int(failures.Load()))
		}),
	}
	if r.onRetry != nil {
		opts = append(opts, retry.OnRetry(func(_ uint, err error) {
			r.onRetry(int(failures.Load()), err)
		}))
	}
	return opts
}
