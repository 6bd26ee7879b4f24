// Package app 把配置、日志、指标、计数存储、配额网关、助手服务与 HTTP 服务组装在一起。
package app
