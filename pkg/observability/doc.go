// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持文件轮转与敏感字段脱敏
//   - xmetrics: 统一观测接口（OTel trace 与 metric），以及 Prometheus 暴露
package observability
