package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := createApp()
	cmd.Writer = &out
	cmd.ExitErrHandler = nil
	err := cmd.Run(context.Background(), append([]string{"priorizai"}, args...))
	return out.String(), err
}

func TestHashCommand(t *testing.T) {
	out, err := runCLI(t, "hash", "--secret", "s1", "--addr", " 203.0.113.5 ")
	require.NoError(t, err)
	assert.Equal(t, "61ee4d5ba9a3070880a86f40bedbaab4c884ff049a2ebde9ec496d737081bc86\n", out)

	t.Setenv("HASH_SALT", "")
	_, err = runCLI(t, "hash", "--addr", "203.0.113.5")
	assert.Equal(t, 2, exitCode(err))

	_, err = runCLI(t, "hash", "--secret", "s1", "--addr", "not-an-ip")
	assert.Equal(t, 2, exitCode(err))
}

func TestQuotaCommand(t *testing.T) {
	t.Setenv("HASH_SALT", "s1")
	t.Setenv("IP_DAILY_LIMIT", "4")

	out, err := runCLI(t, "quota", "--addr", "203.0.113.5")
	require.NoError(t, err)
	var q struct {
		Limit     int    `json:"limit"`
		Used      int64  `json:"used"`
		Remaining int    `json:"remaining"`
		Key       string `json:"key"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &q), out)
	assert.Equal(t, 4, q.Limit)
	assert.Zero(t, q.Used)
	assert.Equal(t, 4, q.Remaining)
	assert.Contains(t, q.Key, "61ee4d5b")
}

func TestConfigCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("quota:\n  limit: 5\n  secret: abc\n"), 0o600))

	out, err := runCLI(t, "--config", good, "config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "limit=5")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("quota:\n  limit: 0\n"), 0o600))
	_, err = runCLI(t, "--config", bad, "config", "check")
	assert.Equal(t, 2, exitCode(err))

	_, err = runCLI(t, "--config", filepath.Join(dir, "missing.yaml"), "config", "check")
	assert.Equal(t, 2, exitCode(err))
}

func TestEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PRIORIZAI_TEST_SALT=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("PRIORIZAI_TEST_SALT") }) //nolint:errcheck // cleanup

	_, err := runCLI(t, "--env-file", path, "hash", "--secret", "x", "--addr", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "from-file", os.Getenv("PRIORIZAI_TEST_SALT"))

	_, err = runCLI(t, "--env-file", filepath.Join(t.TempDir(), "nope.env"), "hash", "--secret", "x", "--addr", "10.0.0.1")
	assert.Equal(t, 2, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 3, exitCode(&exitError{code: 3}))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}
