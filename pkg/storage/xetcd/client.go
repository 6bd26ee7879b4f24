package xetcd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// Client etcd 连接，计数操作通过 Raw 直接使用 clientv3。
type Client struct {
	raw       *clientv3.Client
	healthKey string
	closed    atomic.Bool
}

// Option 客户端选项
type Option func(*clientv3.Config)

// WithTLS 启用 TLS
func WithTLS(tc *tls.Config) Option {
	return func(c *clientv3.Config) { c.TLS = tc }
}

// NewClient 建立连接。cfg.HealthTimeout > 0 时在 ctx 下做一次健康检查，失败则关闭连接。
//
// RejectOldCluster 为 true 时 clientv3.New 会在 DialTimeout 内查询集群版本，
// 集群不可达即返回错误；两者都关闭时创建不依赖集群在线。
// keepalive 只走 DialOptions，clientv3.Config 的同名字段保持零值。
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	cc := clientv3.Config{
		Endpoints:        cfg.Endpoints,
		DialTimeout:      cfg.DialTimeout,
		Username:         cfg.Username,
		Password:         cfg.Password,
		RejectOldCluster: cfg.RejectOldCluster,
		DialOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                cfg.KeepAliveTime,
				Timeout:             cfg.KeepAliveTimeout,
				PermitWithoutStream: cfg.PermitWithoutStream,
			}),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cc)
		}
	}
	raw, err := clientv3.New(cc)
	if err != nil {
		return nil, fmt.Errorf("xetcd: create client: %w", err)
	}
	return attach(ctx, raw, cfg)
}

// attach 包装已创建的 clientv3 连接，按需做健康检查。
func attach(ctx context.Context, raw *clientv3.Client, cfg Config) (*Client, error) {
	c := &Client{raw: raw, healthKey: cfg.HealthKey}
	if cfg.HealthTimeout > 0 {
		hctx, cancel := context.WithTimeout(ctx, cfg.HealthTimeout)
		defer cancel()
		if err := c.Ping(hctx); err != nil {
			c.closed.Store(true)
			return nil, errors.Join(err, raw.Close())
		}
	}
	return c, nil
}

// Raw 满足 xquota.EtcdClient
func (c *Client) Raw() *clientv3.Client { return c.raw }

// Ping 读取健康检查键
func (c *Client) Ping(ctx context.Context) error {
	switch {
	case c.closed.Load():
		return ErrClientClosed
	case c.raw == nil:
		return ErrNotConnected
	}
	if _, err := c.raw.Get(ctx, c.healthKey); err != nil {
		return fmt.Errorf("xetcd: ping %s: %w", c.healthKey, err)
	}
	return nil
}

// Close 可重复调用
func (c *Client) Close() error {
	if c.closed.Swap(true) || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
