package xrun

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServerInterface *http.Server 满足此接口。
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer 监听直到 ctx 取消，然后在 shutdownTimeout 内优雅关闭。
//
// shutdownTimeout <= 0 时等待全部在途请求完成。
func HTTPServer(name string, server HTTPServerInterface, shutdownTimeout time.Duration) Service {
	return Service{Name: name, Run: func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}
		listenErr := make(chan error, 1)
		go func() { listenErr <- server.ListenAndServe() }()

		select {
		case err := <-listenErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx := context.WithoutCancel(ctx)
		if shutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, shutdownTimeout)
			defer cancel()
		}
		err := server.Shutdown(shutdownCtx)
		if lerr := <-listenErr; lerr != nil && !errors.Is(lerr, http.ErrServerClosed) {
			return errors.Join(err, lerr)
		}
		return err
	}}
}
