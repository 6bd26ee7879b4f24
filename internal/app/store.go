package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/priorizai/pkg/observability/xlog"
	"github.com/omeyang/priorizai/pkg/resilience/xbreaker"
	"github.com/omeyang/priorizai/pkg/resilience/xquota"
	"github.com/omeyang/priorizai/pkg/storage/xetcd"
)

// buildStore 按 backend 创建计数存储。返回的 closer 释放底层连接，Store 本身由网关关闭。
//
// etcd 开启 reject_old_cluster 或 health_timeout 时，集群不可达会使创建失败，启动随之失败。
func buildStore(ctx context.Context, cfg Config, logger xlog.Logger) (xquota.Store, func() error, error) {
	noop := func() error { return nil }
	var (
		store  xquota.Store
		closer = noop
	)
	switch cfg.Store.Backend {
	case xquota.BackendRedis:
		rdb, err := newRedisClient(cfg.Store.Redis)
		if err != nil {
			return nil, nil, err
		}
		rs, err := xquota.NewRedisStore(rdb)
		if err != nil {
			return nil, nil, fmt.Errorf("app: redis store: %w", err)
		}
		store, closer = rs, rdb.Close
	case xquota.BackendEtcd:
		cli, err := xetcd.NewClient(ctx, cfg.Store.Etcd)
		if err != nil {
			return nil, nil, fmt.Errorf("app: etcd client: %w", err)
		}
		es, err := xquota.NewEtcdStore(cli.Raw())
		if err != nil {
			return nil, nil, fmt.Errorf("app: etcd store: %w", err)
		}
		store, closer = es, cli.Close
	case xquota.BackendShard:
		// 时区无效时网关本身会失败关闭，清理任务退回默认时区即可
		clock, _ := xquota.NewDayClock(cfg.Quota.Timezone, time.Now) //nolint:errcheck // 见上
		ss, err := xquota.NewShardStore(
			xquota.WithShardCount(cfg.Store.Shard.Shards),
			xquota.WithShardPrefixLen(cfg.Store.Shard.PrefixLen),
			xquota.WithShardJanitor(cfg.Store.Shard.Janitor),
			xquota.WithShardClock(clock),
		)
		if err != nil {
			return nil, nil, err
		}
		store = ss
	case xquota.BackendMemory:
		store = xquota.NewMemoryStore(time.Now)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Store.Backend)
	}

	if cfg.Store.Breaker {
		store = xquota.NewBreakerStore(store,
			xbreaker.WithOnStateChange(func(name string, from, to xbreaker.State) {
				logger.Warn(context.Background(), "store breaker state changed",
					xlog.Component(name), slog.String("from", from.String()), slog.String("to", to.String()))
			}),
		)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Quota.StoreTimeout)
	defer cancel()
	if err := xquota.Ping(pingCtx, store); err != nil {
		// 存储已创建但暂时不可用时不阻止启动，请求会按 STORE_UNAVAILABLE 拒绝
		logger.Warn(ctx, "store not reachable at startup", xlog.Err(err))
	}
	return store, closer, nil
}

func newRedisClient(cfg RedisConfig) (redis.UniversalClient, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("app: parse redis url: %w", err)
		}
		if cfg.PoolSize > 0 {
			opts.PoolSize = cfg.PoolSize
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}), nil
}
