// Package xetcd etcd 连接：端点校验、gRPC keepalive、可选的建连健康检查。
//
//	cfg := xetcd.DefaultConfig()
//	cfg.Endpoints = []string{"localhost:2379"}
//	cfg.HealthTimeout = 3 * time.Second
//	cli, err := xetcd.NewClient(ctx, cfg)
//	store, err := xquota.NewEtcdStore(cli.Raw())
package xetcd
