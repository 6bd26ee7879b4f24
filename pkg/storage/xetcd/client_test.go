package xetcd

import (
	"context"
	"crypto/tls"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
)

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNoEndpoints)

	_, err = NewClient(context.Background(), Config{Endpoints: []string{"localhost"}})
	assert.ErrorIs(t, err, ErrInvalidEndpoint)
}

func TestNewClient_UnreachableCluster(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}
	cfg := DefaultConfig()
	cfg.Endpoints = []string{"127.0.0.1:1"}
	cfg.DialTimeout = 200 * time.Millisecond
	cfg.HealthTimeout = 300 * time.Millisecond

	// 版本检查或健康检查任一步失败都应返回错误
	c, err := NewClient(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, c)
}

// kvStub 只实现 Get，其余方法未被调用。
type kvStub struct {
	clientv3.KV
	err  error
	keys []string
}

func (k *kvStub) Get(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	k.keys = append(k.keys, key)
	if k.err != nil {
		return nil, k.err
	}
	return &clientv3.GetResponse{}, nil
}

func stubRaw(kv clientv3.KV) *clientv3.Client {
	raw := clientv3.NewCtxClient(context.Background())
	raw.KV = kv
	return raw
}

func TestAttach_HealthCheckFails(t *testing.T) {
	boom := errors.New("etcdserver: request timed out")
	kv := &kvStub{err: boom}
	cfg := DefaultConfig()
	cfg.HealthTimeout = time.Second
	cfg.HealthKey = "/app/health"

	c, err := attach(context.Background(), stubRaw(kv), cfg)
	require.Error(t, err)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "/app/health")
	assert.Equal(t, []string{"/app/health"}, kv.keys)
}

func TestAttach_HealthCheck(t *testing.T) {
	kv := &kvStub{}
	cfg := DefaultConfig()
	cfg.HealthTimeout = time.Second

	c, err := attach(context.Background(), stubRaw(kv), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{defaultHealthKey}, kv.keys)
	require.NoError(t, c.Ping(context.Background()))
	assert.Len(t, kv.keys, 2)

	_ = c.Close() //nolint:errcheck // NewCtxClient 关闭时返回 context.Canceled
	assert.ErrorIs(t, c.Ping(context.Background()), ErrClientClosed)
}

func TestAttach_SkipsHealthCheck(t *testing.T) {
	kv := &kvStub{err: errors.New("unreachable")}
	cfg := DefaultConfig()

	c, err := attach(context.Background(), stubRaw(kv), cfg)
	require.NoError(t, err)
	assert.Empty(t, kv.keys)
	assert.Error(t, c.Ping(context.Background()))
}

func TestClient_ZeroValue(t *testing.T) {
	c := &Client{}
	assert.ErrorIs(t, c.Ping(context.Background()), ErrNotConnected)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), ErrClientClosed)
}

func TestWithTLS(t *testing.T) {
	tc := &tls.Config{MinVersion: tls.VersionTLS12}
	var cc clientv3.Config
	WithTLS(tc)(&cc)
	assert.Same(t, tc, cc.TLS)
}
