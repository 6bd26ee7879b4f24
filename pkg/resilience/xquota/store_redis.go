package xquota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript 在一次往返中完成 GET/比较/INCR/PEXPIRE。
//
// KEYS[1] 计数键；ARGV[1] 上限；ARGV[2] TTL 毫秒。返回 {admitted, count}。
var consumeScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if current >= limit then
  return {0, current}
end
current = redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return {1, current}
`)

// RedisStore 共享外部存储，依赖 Lua 脚本保证原子性。
type RedisStore struct {
	rdb redis.UniversalClient
}

// NewRedisStore rdb 的生命周期由调用方管理，Close 不会关闭它。
func NewRedisStore(rdb redis.UniversalClient) (*RedisStore, error) {
	if rdb == nil {
		return nil, configError("redis client is nil")
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Consume(ctx context.Context, key Key, limit int64, ttl time.Duration) (Usage, error) {
	if err := key.Validate(); err != nil {
		return Usage{}, err
	}
	ttlMs := ttl.Milliseconds()
	if ttlMs < 1 {
		ttlMs = 1
	}
	res, err := consumeScript.Run(ctx, s.rdb, []string{key.String()}, limit, ttlMs).Int64Slice()
	if err != nil {
		return Usage{}, fmt.Errorf("redis consume: %w", err)
	}
	if len(res) != 2 {
		return Usage{}, fmt.Errorf("redis consume: unexpected reply %v", res)
	}
	return Usage{Admitted: res[0] == 1, Count: res[1]}, nil
}

func (s *RedisStore) Peek(ctx context.Context, key Key) (int64, error) {
	n, err := s.rdb.Get(ctx, key.String()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis peek: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Reset(ctx context.Context, key Key) error {
	if err := s.rdb.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("redis reset: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Type() string { return BackendRedis }

func (s *RedisStore) Close() error { return nil }

var (
	_ Store  = (*RedisStore)(nil)
	_ Pinger = (*RedisStore)(nil)
)
