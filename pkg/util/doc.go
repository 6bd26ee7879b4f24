// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xnet: IP 地址工具，基于 net/netip + go4.org/netipx 的客户端地址解析与网段匹配
package util
