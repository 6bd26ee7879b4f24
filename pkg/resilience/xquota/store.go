package xquota

import (
	"context"
	"time"
)

// Usage 一次 Consume 的结果
type Usage struct {
	// Count 本次操作后的计数；拒绝时为当前计数（不递增）。
	Count int64

	// Admitted 是否消耗了一个配额单位
	Admitted bool
}

//go:generate mockgen -source=store.go -destination=mock_store_test.go -package=xquota

// Store 原子计数服务。
//
// Consume 必须原子地完成"读取、比较、递增"：同一键上的并发调用不能丢失更新，
// 也不能在只剩一个配额时让两个调用同时通过。
type Store interface {
	// Consume count < limit 时递增并放行，否则不递增并拒绝。记录在 ttl 后过期。
	Consume(ctx context.Context, key Key, limit int64, ttl time.Duration) (Usage, error)

	// Peek 读取当前计数，不存在返回 0。
	Peek(ctx context.Context, key Key) (int64, error)

	// Reset 删除计数（运维与测试使用）
	Reset(ctx context.Context, key Key) error

	// Type 后端类型名，用于日志和指标
	Type() string

	Close() error
}

// Pinger 可探活的存储
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping 对实现了 Pinger 的存储探活，其余视为可用。
func Ping(ctx context.Context, s Store) error {
	if s == nil {
		return configError("store is nil")
	}
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// 后端类型名
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendEtcd   = "etcd"
	BackendShard  = "shard"
)
