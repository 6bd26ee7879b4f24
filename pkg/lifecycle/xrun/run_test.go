package xrun

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBoom = errors.New("boom")

func waitCtx(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func noSignals() []Option { return []Option{WithoutSignalHandler(), WithName("test")} }

func TestRun_ServiceErrorCancelsOthers(t *testing.T) {
	err := Run(context.Background(), noSignals(),
		Func("failing", func(context.Context) error { return errBoom }),
		Func("waiting", waitCtx),
	)
	assert.ErrorIs(t, err, errBoom)
}

func TestRun_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	assert.NoError(t, Run(ctx, noSignals(), Func("a", waitCtx), Func("b", waitCtx)))
}

func TestRun_NilFunc(t *testing.T) {
	assert.ErrorIs(t, Run(context.Background(), noSignals(), Service{Name: "empty"}), ErrNilFunc)
}

func TestRun_Signal(t *testing.T) {
	sigs := make(chan os.Signal, 1)
	ctx := withTestSigChan(context.Background(), sigs)

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, []Option{WithSignals(syscall.SIGUSR1)}, Func("waiting", waitCtx))
	}()
	sigs <- syscall.SIGTERM

	select {
	case err := <-done:
		var se *SignalError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, syscall.SIGTERM, se.Signal)
		assert.ErrorIs(t, err, ErrSignal)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after signal")
	}
}

func TestHTTPServer_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc := HTTPServer("http", srv, time.Second)
	assert.Equal(t, "http", svc.Name)
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close() //nolint:errcheck // test
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 10*time.Millisecond)
	http.DefaultClient.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.ErrorIs(t, HTTPServer("nil", nil, 0).Run(context.Background()), ErrNilServer)
}

func TestHTTPServer_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close() //nolint:errcheck // test

	srv := &http.Server{Addr: ln.Addr().String(), ReadHeaderTimeout: time.Second}
	err = HTTPServer("busy", srv, time.Second).Run(context.Background())
	assert.Error(t, err, "address already in use")
}

func TestSignalError(t *testing.T) {
	err := &SignalError{Signal: syscall.SIGINT}
	assert.ErrorIs(t, err, ErrSignal)
	assert.Contains(t, err.Error(), "interrupt")
	assert.Equal(t, "received signal <nil>", (&SignalError{}).Error())
	assert.Len(t, DefaultSignals(), 4)
}
