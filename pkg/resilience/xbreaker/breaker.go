package xbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker gobreaker 的薄封装：统一错误类型，并加上 ctx 入口检查。
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// Option 直接修改 gobreaker.Settings
type Option func(*gobreaker.Settings)

// WithTrip 默认 ConsecutiveFailures(5)
func WithTrip(trip TripFunc) Option {
	return func(s *gobreaker.Settings) {
		if trip != nil {
			s.ReadyToTrip = trip
		}
	}
}

// WithSuccess 默认 err == nil 为成功
func WithSuccess(ok SuccessFunc) Option {
	return func(s *gobreaker.Settings) {
		if ok != nil {
			s.IsSuccessful = ok
		}
	}
}

// WithTimeout Open 持续多久后进入 HalfOpen，默认 30s。
func WithTimeout(d time.Duration) Option {
	return func(s *gobreaker.Settings) {
		if d > 0 {
			s.Timeout = d
		}
	}
}

// WithInterval Closed 状态下的统计清零周期，默认不清零。
func WithInterval(d time.Duration) Option {
	return func(s *gobreaker.Settings) { s.Interval = max(d, 0) }
}

// WithMaxRequests HalfOpen 状态放行的探测请求数，默认 1。
func WithMaxRequests(n uint32) Option {
	return func(s *gobreaker.Settings) { s.MaxRequests = max(n, 1) }
}

func WithOnStateChange(f func(name string, from, to State)) Option {
	return func(s *gobreaker.Settings) { s.OnStateChange = f }
}

// NewBreaker name 出现在日志和 BreakerError 中。
func NewBreaker(name string, opts ...Option) *Breaker {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: ConsecutiveFailures(5),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&st)
		}
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker[struct{}](st)}
}

// Do ctx 只在入口检查，已取消时不计入统计。拒绝时返回 *BreakerError。
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	switch {
	case ctx == nil:
		return ErrNilContext
	case fn == nil:
		return ErrNilFunc
	case ctx.Err() != nil:
		return ctx.Err()
	}
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return wrapBreakerError(err, b.name)
}

// Execute 带返回值的 Do，出错时返回零值。
func Execute[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var out T
	if b == nil {
		return out, ErrNilBreaker
	}
	err := b.Do(ctx, func() (err error) {
		out, err = fn()
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (b *Breaker) State() State { return b.cb.State() }

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) Counts() Counts { return b.cb.Counts() }
