package xnet

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// ParseClientAddr 解析来自请求头或 RemoteAddr 的客户端地址。
//
// 接受 "1.2.3.4"、"1.2.3.4:5678"、"[2001:db8::1]:443"、"2001:db8::1" 等形式，
// 去除端口与 IPv6 zone，IPv4-mapped IPv6 还原为 IPv4。
func ParseClientAddr(s string) (netip.Addr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		return canonical(addr), nil
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		if addr, err := netip.ParseAddr(host); err == nil {
			return canonical(addr), nil
		}
	}
	// "[2001:db8::1]" 不带端口
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		if addr, err := netip.ParseAddr(s[1 : len(s)-1]); err == nil {
			return canonical(addr), nil
		}
	}
	return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
}

// NormalizeAddr 返回 ParseClientAddr 结果的规范字符串。
func NormalizeAddr(s string) (string, error) {
	addr, err := ParseClientAddr(s)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

func canonical(addr netip.Addr) netip.Addr {
	return addr.WithZone("").Unmap()
}

// FirstListEntry 返回逗号分隔列表（如 X-Forwarded-For）的第一个非空条目。
func FirstListEntry(v string) string {
	for part := range strings.SplitSeq(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			return p
		}
	}
	return ""
}
