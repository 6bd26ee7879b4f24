// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xetcd: etcd 连接管理，keepalive、健康检查与 TLS
package storage
