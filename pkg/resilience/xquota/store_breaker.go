package xquota

import (
	"context"
	"time"

	"github.com/omeyang/priorizai/pkg/resilience/xbreaker"
)

// BreakerStore 为存储加熔断。
//
// 存储连续失败后熔断器打开，后续调用立即返回 *xbreaker.BreakerError，
// 网关把它归为 ErrStoreUnavailable，请求被拒绝而不再等待超时。
// 调用方取消不计为失败。
type BreakerStore struct {
	Store
	breaker *xbreaker.Breaker
}

// NewBreakerStore 包装 store。opts 追加在默认选项之后。
func NewBreakerStore(store Store, opts ...xbreaker.Option) *BreakerStore {
	base := []xbreaker.Option{
		xbreaker.WithSuccess(xbreaker.IgnoreErrors(context.Canceled)),
	}
	return &BreakerStore{
		Store:   store,
		breaker: xbreaker.NewBreaker("xquota-"+store.Type(), append(base, opts...)...),
	}
}

func (s *BreakerStore) Consume(ctx context.Context, key Key, limit int64, ttl time.Duration) (Usage, error) {
	return xbreaker.Execute(ctx, s.breaker, func() (Usage, error) {
		return s.Store.Consume(ctx, key, limit, ttl)
	})
}

func (s *BreakerStore) Peek(ctx context.Context, key Key) (int64, error) {
	return xbreaker.Execute(ctx, s.breaker, func() (int64, error) {
		return s.Store.Peek(ctx, key)
	})
}

// Ping 透传给底层存储，不经过熔断器，探活结果反映真实状态。
func (s *BreakerStore) Ping(ctx context.Context) error {
	return Ping(ctx, s.Store)
}

// Breaker 底层熔断器
func (s *BreakerStore) Breaker() *xbreaker.Breaker { return s.breaker }

// Unwrap 返回被包装的存储
func (s *BreakerStore) Unwrap() Store { return s.Store }

var (
	_ Store  = (*BreakerStore)(nil)
	_ Pinger = (*BreakerStore)(nil)
)
