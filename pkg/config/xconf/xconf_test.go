package xconf

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quotaSection struct {
	Limit    int    `koanf:"limit"`
	Secret   string `koanf:"secret"`
	Timezone string `koanf:"timezone"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestNew_YAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	writeFile(t, yamlPath, "quota:\n  limit: 5\n  timezone: UTC\n")
	cfg, err := New(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, cfg.Format())
	assert.Equal(t, yamlPath, cfg.Path())

	var q quotaSection
	require.NoError(t, cfg.Unmarshal("quota", &q))
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, "UTC", q.Timezone)

	jsonPath := filepath.Join(dir, "config.json")
	writeFile(t, jsonPath, `{"quota":{"limit":7}}`)
	cfg, err = New(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Client().Int("quota.limit"))
}

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = New("config.toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrLoadFailed)

	bad := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, bad, "{not json")
	_, err = New(bad)
	assert.ErrorIs(t, err, ErrParseFailed)

	_, err = NewFromBytes(nil, "ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HASH_SALT", "from-env")
	t.Setenv("IP_DAILY_LIMIT", "abc")

	parseLimit := func(raw string) (any, bool) {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, false
		}
		return n, true
	}

	cfg, err := NewFromBytes([]byte("quota:\n  limit: 4\n  secret: from-file\n"), FormatYAML,
		WithEnv(
			Bind("HASH_SALT", "quota.secret"),
			EnvBinding{Var: "IP_DAILY_LIMIT", Key: "quota.limit", Transform: parseLimit},
			Bind("UNSET_VAR", "quota.timezone"),
		),
	)
	require.NoError(t, err)

	var q quotaSection
	require.NoError(t, cfg.Unmarshal("quota", &q))
	assert.Equal(t, "from-env", q.Secret)
	assert.Equal(t, 4, q.Limit, "invalid env value keeps file value")
	assert.Empty(t, q.Timezone)

	assert.ErrorIs(t, cfg.Reload(), ErrNotReloadable)
}

func TestLoadDotenv(t *testing.T) {
	require.NoError(t, LoadDotenv(), "missing default .env is not an error")

	path := filepath.Join(t.TempDir(), "test.env")
	writeFile(t, path, "XCONF_DOTENV_PROBE=loaded\n")
	t.Cleanup(func() { _ = os.Unsetenv("XCONF_DOTENV_PROBE") }) //nolint:errcheck // cleanup

	require.NoError(t, LoadDotenv(path))
	assert.Equal(t, "loaded", os.Getenv("XCONF_DOTENV_PROBE"))

	assert.ErrorIs(t, LoadDotenv(filepath.Join(t.TempDir(), "nope.env")), ErrLoadFailed)
}

func TestReload_KeepsEnvOverlay(t *testing.T) {
	t.Setenv("HASH_SALT", "env-secret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "quota:\n  limit: 3\n")

	cfg, err := New(path, WithEnv(Bind("HASH_SALT", "quota.secret")))
	require.NoError(t, err)

	writeFile(t, path, "quota:\n  limit: 9\n  secret: file-secret\n")
	require.NoError(t, cfg.Reload())

	var q quotaSection
	require.NoError(t, cfg.Unmarshal("quota", &q))
	assert.Equal(t, 9, q.Limit)
	assert.Equal(t, "env-secret", q.Secret)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "quota:\n  limit: 3\n")
	cfg, err := New(path)
	require.NoError(t, err)

	w, err := cfg.NewWatcher(WithDebounce(20 * time.Millisecond))
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		limits []int
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(err error) {
			if err != nil {
				return
			}
			mu.Lock()
			limits = append(limits, cfg.Client().Int("quota.limit"))
			mu.Unlock()
		})
	}()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "quota:\n  limit: 8\n")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(limits) > 0 && limits[len(limits)-1] == 8
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "quota:\n  limit: 3\n")
	cfg, err := New(path)
	require.NoError(t, err)

	w, err := cfg.NewWatcher(WithDebounce(10 * time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	var calls int
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(error) { calls++ }) }()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "other.yaml"), "x: 1\n")
	require.NoError(t, <-done)
	assert.Zero(t, calls)
}

func TestNewWatcher_RejectsBytesConfig(t *testing.T) {
	cfg, err := NewFromBytes(nil, FormatJSON)
	require.NoError(t, err)
	_, err = cfg.NewWatcher()
	assert.ErrorIs(t, err, ErrNotReloadable)
}
