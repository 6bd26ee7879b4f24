package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/priorizai/pkg/lifecycle/xrun"
	"github.com/omeyang/priorizai/pkg/resilience/xquota"
	"github.com/omeyang/priorizai/pkg/storage/xetcd"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Quota.Limit = 2
	cfg.Quota.Secret = "s1"
	cfg.Log.Format = "text"
	return cfg
}

func newApp(t *testing.T, cfg Config) (*App, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	a, err := New(context.Background(), nil, cfg, WithLogOutput(&logs))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) }) //nolint:errcheck // cleanup
	return a, &logs
}

func post(t *testing.T, h http.Handler, path, body, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(xquota.HeaderCFConnectingIP, ip)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApp_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Store.Backend = xquota.BackendRedis
	cfg.Store.Redis.URL = "redis://" + mr.Addr() + "/0"

	a, _ := newApp(t, cfg)
	assert.Equal(t, xquota.BackendRedis, a.Gate().Backend())

	h := a.Handler()
	for range 2 {
		// 没有 API Key：通过配额后由助手返回 CONFIG_ERROR，但计数已经消耗
		rec := post(t, h, "/calmai", `{"text":"oi"}`, "203.0.113.5")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "OPENAI_API_KEY")
	}
	rec := post(t, h, "/calmai", `{"text":"oi"}`, "203.0.113.5")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "rl:"))
	assert.Greater(t, mr.TTL(keys[0]), 47*time.Hour)

	q, err := a.Gate().Peek(context.Background(), "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, int64(2), q.Used)
}

func TestApp_RedisDownFailsClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Store.Backend = xquota.BackendRedis
	cfg.Store.Redis.Addrs = []string{mr.Addr()}
	cfg.Quota.StoreTimeout = 200 * time.Millisecond
	cfg.Quota.Secret = "top-secret-salt"

	a, logs := newApp(t, cfg)
	mr.Close()

	rec := post(t, a.Handler(), "/briefai", `{"text":"oi"}`, "203.0.113.9")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "STORE_UNAVAILABLE")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	hr := httptest.NewRecorder()
	a.Handler().ServeHTTP(hr, req)
	assert.Equal(t, http.StatusServiceUnavailable, hr.Code)
	assert.NotContains(t, logs.String(), "top-secret-salt")
}

func TestApp_ShardBackendAndMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Backend = xquota.BackendShard
	cfg.Store.Shard.Shards = 2
	cfg.Store.ExhaustedCacheSize = 16

	a, _ := newApp(t, cfg)
	h := a.Handler()
	for range 3 {
		post(t, h, "/prioritize", `{"tasks":[{"title":"a"}]}`, "198.51.100.1")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "xquota")
}

func TestApp_MissingSecretStillStarts(t *testing.T) {
	cfg := testConfig()
	cfg.Quota.Secret = ""
	a, logs := newApp(t, cfg)
	require.ErrorIs(t, a.Gate().ConfigErr(), xquota.ErrConfiguration)
	assert.Contains(t, logs.String(), "misconfigured")

	rec := post(t, a.Handler(), "/calmai", `{"text":"oi"}`, "203.0.113.5")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFIG_ERROR")
}

func TestApp_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Backend = "nope"
	_, err := New(context.Background(), nil, cfg, WithLogOutput(io.Discard))
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestApp_EtcdBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Backend = xquota.BackendEtcd
	cfg.Store.Etcd.Endpoints = []string{"localhost"}
	_, err := New(context.Background(), nil, cfg, WithLogOutput(io.Discard))
	assert.ErrorIs(t, err, xetcd.ErrInvalidEndpoint)

	if testing.Short() {
		t.Skip("dials a closed port")
	}
	cfg.Store.Etcd.Endpoints = []string{"127.0.0.1:1"}
	cfg.Store.Etcd.DialTimeout = 200 * time.Millisecond
	cfg.Quota.StoreTimeout = 200 * time.Millisecond

	// 默认配置下集群不可达不阻止启动，请求失败关闭
	a, logs := newApp(t, cfg)
	assert.Equal(t, xquota.BackendEtcd, a.Gate().Backend())
	assert.Contains(t, logs.String(), "store not reachable at startup")
	rec := post(t, a.Handler(), "/calmai", `{"text":"oi"}`, "203.0.113.7")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "STORE_UNAVAILABLE")

	// 开启健康检查后不可达的集群使启动失败
	cfg.Store.Etcd.HealthTimeout = 200 * time.Millisecond
	_, err = New(context.Background(), nil, cfg, WithLogOutput(io.Discard))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd client")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	a, _ := newApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, xrun.WithoutSignalHandler()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
