// Package xnet 客户端地址解析与 IP 范围集合，基于 net/netip 与 go4.org/netipx。
//
//	addr, err := xnet.ParseClientAddr("[2001:db8::1]:443") // 2001:db8::1
//	trusted, err := xnet.ParseRanges([]string{"10.0.0.0/8", "173.245.48.0-173.245.63.255"})
//	trusted.Contains(addr)
package xnet
