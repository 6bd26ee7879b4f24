package xquota

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/priorizai/pkg/config/xconf"
)

func TestXConfProvider_Load(t *testing.T) {
	cfg, err := xconf.NewFromBytes([]byte(`
quota:
  limit: 5
  secret: pepper
  timezone: UTC
  ttl: 72h
`), xconf.FormatYAML)
	require.NoError(t, err)

	got, err := NewXConfProvider(cfg, "quota").Load()
	require.NoError(t, err)
	assert.Equal(t, 5, got.Limit)
	assert.Equal(t, "pepper", got.Secret)
	assert.Equal(t, "UTC", got.Timezone)
	assert.Equal(t, 72*time.Hour, got.TTL)
	assert.Equal(t, DefaultStoreTimeout, got.StoreTimeout, "unset fields keep defaults")

	bad, err := xconf.NewFromBytes([]byte("quota:\n  limit: 0\n"), xconf.FormatYAML)
	require.NoError(t, err)
	_, err = NewXConfProvider(bad, "quota").Load()
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestXConfProvider_WatchUpdatesGateLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quota:\n  limit: 3\n  secret: s1\n"), 0o600))

	cfg, err := xconf.New(path)
	require.NoError(t, err)
	provider := NewXConfProvider(cfg, "quota")
	qc, err := provider.Load()
	require.NoError(t, err)

	g := New(qc, NewMemoryStore(nil))
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := provider.Watch(ctx)
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Follow(changes)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("quota:\n  limit: 9\n  secret: s1\n"), 0o600))

	assert.Eventually(t, func() bool { return g.Limit() == 9 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Follow did not return after the watch stopped")
	}
}

func TestGate_FollowIgnoresBadChanges(t *testing.T) {
	g := New(testConfig(), NewMemoryStore(nil))
	defer g.Close()

	ch := make(chan ConfigChange, 3)
	ch <- ConfigChange{Err: ErrConfiguration}
	ch <- ConfigChange{NewConfig: Config{Limit: 0, Secret: "s1"}}
	next := testConfig()
	next.Limit = 4
	next.Timezone = "UTC"
	ch <- ConfigChange{NewConfig: next}
	close(ch)

	g.Follow(ch)
	assert.Equal(t, 4, g.Limit())
	assert.Equal(t, DefaultTimezone, g.Config().Timezone, "timezone needs a restart")
}
