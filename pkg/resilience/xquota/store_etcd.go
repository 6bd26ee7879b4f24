package xquota

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdClient EtcdStore 需要的 etcd 操作，*clientv3.Client 满足此接口。
type EtcdClient interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Txn(ctx context.Context) clientv3.Txn
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
}

var _ EtcdClient = (*clientv3.Client)(nil)

const (
	// defaultEtcdMaxAttempts CAS 冲突时的最大尝试次数
	defaultEtcdMaxAttempts = 16

	etcdHealthKey = "xquota-health"
)

// EtcdStore 基于 compare-and-set 事务的共享计数。
//
// 每次递增以 ModRevision 为条件提交，冲突时重读重试；
// 键首次创建时挂上租约，之后的递增沿用原租约（WithIgnoreLease）。
type EtcdStore struct {
	cli         EtcdClient
	maxAttempts int
}

// EtcdOption EtcdStore 选项
type EtcdOption func(*EtcdStore)

// WithEtcdMaxAttempts CAS 冲突的最大尝试次数，默认 16。
func WithEtcdMaxAttempts(n int) EtcdOption {
	return func(s *EtcdStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewEtcdStore cli 的生命周期由调用方管理。
func NewEtcdStore(cli EtcdClient, opts ...EtcdOption) (*EtcdStore, error) {
	if cli == nil {
		return nil, configError("etcd client is nil")
	}
	s := &EtcdStore{cli: cli, maxAttempts: defaultEtcdMaxAttempts}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *EtcdStore) Consume(ctx context.Context, key Key, limit int64, ttl time.Duration) (Usage, error) {
	if err := key.Validate(); err != nil {
		return Usage{}, err
	}
	k := key.String()
	var lease clientv3.LeaseID

	for range s.maxAttempts {
		count, rev, err := s.read(ctx, k)
		if err != nil {
			return Usage{}, err
		}
		if count >= limit {
			return Usage{Count: count}, nil
		}

		putOpt := clientv3.WithIgnoreLease()
		if rev == 0 {
			if lease == 0 {
				resp, err := s.cli.Grant(ctx, ttlSeconds(ttl))
				if err != nil {
					return Usage{}, fmt.Errorf("etcd grant: %w", err)
				}
				lease = resp.ID
			}
			putOpt = clientv3.WithLease(lease)
		}

		next := count + 1
		resp, err := s.cli.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(k), "=", rev)).
			Then(clientv3.OpPut(k, strconv.FormatInt(next, 10), putOpt)).
			Commit()
		if err != nil {
			return Usage{}, fmt.Errorf("etcd txn: %w", err)
		}
		if resp.Succeeded {
			return Usage{Count: next, Admitted: true}, nil
		}
		if err := ctx.Err(); err != nil {
			return Usage{}, err
		}
	}
	return Usage{}, fmt.Errorf("etcd consume: %d conflicting attempts on %s", s.maxAttempts, key.Day)
}

// read 返回计数与 ModRevision，键不存在时均为 0。
func (s *EtcdStore) read(ctx context.Context, k string) (int64, int64, error) {
	resp, err := s.cli.Get(ctx, k)
	if err != nil {
		return 0, 0, fmt.Errorf("etcd get: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return 0, 0, nil
	}
	kv := resp.Kvs[0]
	count, err := strconv.ParseInt(string(kv.Value), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("etcd get: corrupt counter: %w", err)
	}
	return count, kv.ModRevision, nil
}

func (s *EtcdStore) Peek(ctx context.Context, key Key) (int64, error) {
	count, _, err := s.read(ctx, key.String())
	return count, err
}

func (s *EtcdStore) Reset(ctx context.Context, key Key) error {
	if _, err := s.cli.Delete(ctx, key.String()); err != nil {
		return fmt.Errorf("etcd delete: %w", err)
	}
	return nil
}

// Ping 读取一个不存在的键，验证集群可达。
func (s *EtcdStore) Ping(ctx context.Context) error {
	if _, err := s.cli.Get(ctx, etcdHealthKey); err != nil {
		return fmt.Errorf("etcd ping: %w", err)
	}
	return nil
}

func (s *EtcdStore) Type() string { return BackendEtcd }

func (s *EtcdStore) Close() error { return nil }

// ttlSeconds etcd 租约以秒计，向上取整且至少 1 秒。
func ttlSeconds(ttl time.Duration) int64 {
	sec := int64(math.Ceil(ttl.Seconds()))
	return max(sec, 1)
}

var (
	_ Store  = (*EtcdStore)(nil)
	_ Pinger = (*EtcdStore)(nil)
)
