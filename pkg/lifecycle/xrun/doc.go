// Package xrun 进程生命周期：并发运行命名服务，任一服务退出或收到信号时协调关闭。
//
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithName("priorizai"), xrun.WithLogger(logger)},
//		xrun.HTTPServer("http", srv, 10*time.Second),
//		xrun.Func("config-watch", watch),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//		// 正常退出
//	}
package xrun
