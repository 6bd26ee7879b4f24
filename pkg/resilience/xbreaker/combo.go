package xbreaker

import (
	"context"

	"github.com/omeyang/priorizai/pkg/resilience/xretry"
)

// BreakerRetryer 熔断包裹重试：整组重试算作熔断器的一次调用。
//
// 熔断打开时直接拒绝，不再进入重试退避。
type BreakerRetryer struct {
	breaker *Breaker
	retryer *xretry.Retryer
}

func NewBreakerRetryer(breaker *Breaker, retryer *xretry.Retryer) (*BreakerRetryer, error) {
	if breaker == nil {
		return nil, ErrNilBreaker
	}
	if retryer == nil {
		return nil, xretry.ErrNilRetryer
	}
	return &BreakerRetryer{breaker: breaker, retryer: retryer}, nil
}

// Do 执行 fn，fn 收到的 ctx 用于取消单次尝试。
func (br *BreakerRetryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	return br.breaker.Do(ctx, func() error {
		return br.retryer.Do(ctx, fn)
	})
}

// ExecuteWithRetry Do 的泛型版本
func ExecuteWithRetry[T any](ctx context.Context, br *BreakerRetryer, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := br.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (br *BreakerRetryer) Breaker() *Breaker { return br.breaker }

func (br *BreakerRetryer) State() State { return br.breaker.State() }
