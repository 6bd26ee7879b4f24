package xnet

import (
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// ParseRange 接受三种写法："10.0.0.1"、"10.0.0.0/8"、"10.0.0.1-10.0.0.9"。
// IPv4 映射的 IPv6 地址按 IPv4 处理。带 zone 的地址被拒绝，netipx 会丢掉 zone。
func ParseRange(s string) (netipx.IPRange, error) {
	s = strings.TrimSpace(s)
	bad := func(reason string) (netipx.IPRange, error) {
		return netipx.IPRange{}, fmt.Errorf("%w: %q: %s", ErrInvalidRange, s, reason)
	}
	if strings.ContainsRune(s, '%') {
		return bad("zone not supported")
	}

	var r netipx.IPRange
	switch lo, hi, isSpan := strings.Cut(s, "-"); {
	case isSpan:
		from, err1 := netip.ParseAddr(strings.TrimSpace(lo))
		to, err2 := netip.ParseAddr(strings.TrimSpace(hi))
		if err1 != nil || err2 != nil {
			return bad("bad range bound")
		}
		r = netipx.IPRangeFrom(from.Unmap(), to.Unmap())
	case strings.ContainsRune(s, '/'):
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return bad(err.Error())
		}
		r = netipx.RangeOfPrefix(p.Masked())
	default:
		a, err := netip.ParseAddr(s)
		if err != nil {
			return bad(err.Error())
		}
		r = netipx.IPRangeFrom(a.Unmap(), a.Unmap())
	}
	if !r.IsValid() {
		return bad("start after end or mixed families")
	}
	return r, nil
}

// ParseRanges 合并为一个 IPSet，空输入得到空集合。
func ParseRanges(ranges []string) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for _, s := range ranges {
		r, err := ParseRange(s)
		if err != nil {
			return nil, err
		}
		b.AddRange(r)
	}
	return b.IPSet()
}
