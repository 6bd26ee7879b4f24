// Package xlog 基于 log/slog 的结构化日志库。
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation(xlog.Rotation{Filename: "/var/log/priorizai.log"}).
//		SetReplaceAttr(xlog.RedactKeys("secret", "api_key")).
//		Build()
//	defer cleanup()
//
// Builder 为一次性使用，first-error-wins。
//
// # Context 注入
//
// 默认开启上下文字段注入：xctx 中的 request_id、trace_id、client_hash 自动写入每条日志。
//
// # 级别控制
//
// [Logger.With] 派生的 logger 共享父级 LevelVar，对根 logger 调用 SetLevel 全局生效。
package xlog
