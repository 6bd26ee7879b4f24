package xquota

import (
	"fmt"
	"net/http"

	"go4.org/netipx"

	"github.com/omeyang/priorizai/pkg/util/xnet"
)

// 常用的客户端地址请求头
const (
	HeaderCFConnectingIP = "CF-Connecting-IP"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderXRealIP        = "X-Real-IP"
)

// AddressResolver 从请求中确定客户端地址。
//
// 返回的地址已规范化；无法确定时返回 ErrAddressUnresolved。
type AddressResolver interface {
	Resolve(r *http.Request) (string, error)
}

// ResolverFunc 函数适配器
type ResolverFunc func(r *http.Request) (string, error)

func (f ResolverFunc) Resolve(r *http.Request) (string, error) { return f(r) }

func unresolved(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAddressUnresolved, fmt.Sprintf(format, args...))
}

func normalize(raw, source string) (string, error) {
	addr, err := xnet.NormalizeAddr(raw)
	if err != nil {
		return "", unresolved("%s: %v", source, err)
	}
	return addr, nil
}

// HeaderResolver 依次读取 CF-Connecting-IP 与 X-Forwarded-For 的第一个条目。
//
// 适合部署在会覆盖这些头的边缘代理之后；直接暴露在公网时客户端可伪造它们，
// 应改用 NewTrustedProxyResolver。
func HeaderResolver() AddressResolver {
	return ResolverFunc(func(r *http.Request) (string, error) {
		if r == nil {
			return "", unresolved("nil request")
		}
		if v := r.Header.Get(HeaderCFConnectingIP); v != "" {
			return normalize(v, HeaderCFConnectingIP)
		}
		if v := xnet.FirstListEntry(r.Header.Get(HeaderXForwardedFor)); v != "" {
			return normalize(v, HeaderXForwardedFor)
		}
		return "", unresolved("no client address header")
	})
}

// TrustedHeaderResolver 只读取指定请求头（列表取第一个条目）。
func TrustedHeaderResolver(header string) AddressResolver {
	return ResolverFunc(func(r *http.Request) (string, error) {
		if r == nil {
			return "", unresolved("nil request")
		}
		v := xnet.FirstListEntry(r.Header.Get(header))
		if v == "" {
			return "", unresolved("header %s missing", header)
		}
		return normalize(v, header)
	})
}

// RemoteAddrResolver 使用连接对端地址。
func RemoteAddrResolver() AddressResolver {
	return ResolverFunc(func(r *http.Request) (string, error) {
		if r == nil {
			return "", unresolved("nil request")
		}
		return normalize(r.RemoteAddr, "remote addr")
	})
}

type trustedProxyResolver struct {
	trusted *netipx.IPSet
	inner   AddressResolver
}

// NewTrustedProxyResolver 对端属于 trusted 时交给 inner 读取请求头，
// 否则使用对端地址本身。inner 为 nil 时使用 HeaderResolver。
func NewTrustedProxyResolver(trusted []string, inner AddressResolver) (AddressResolver, error) {
	set, err := xnet.ParseRanges(trusted)
	if err != nil {
		return nil, configError("trusted proxies: %v", err)
	}
	if inner == nil {
		inner = HeaderResolver()
	}
	return &trustedProxyResolver{trusted: set, inner: inner}, nil
}

func (t *trustedProxyResolver) Resolve(r *http.Request) (string, error) {
	if r == nil {
		return "", unresolved("nil request")
	}
	peer, err := xnet.ParseClientAddr(r.RemoteAddr)
	if err != nil {
		return "", unresolved("remote addr: %v", err)
	}
	if t.trusted.Contains(peer) {
		return t.inner.Resolve(r)
	}
	return peer.String(), nil
}

// 解析器类型名，用于配置
const (
	ResolverHeader        = "header"
	ResolverTrustedHeader = "trusted_header"
	ResolverRemoteAddr    = "remote_addr"
	ResolverTrustedProxy  = "trusted_proxy"
)

// NewResolver 按配置创建解析器。
// header 用于 trusted_header；trusted 用于 trusted_proxy。
func NewResolver(kind, header string, trusted []string) (AddressResolver, error) {
	switch kind {
	case "", ResolverHeader:
		return HeaderResolver(), nil
	case ResolverTrustedHeader:
		if header == "" {
			return nil, configError("resolver %s requires a header", kind)
		}
		return TrustedHeaderResolver(header), nil
	case ResolverRemoteAddr:
		return RemoteAddrResolver(), nil
	case ResolverTrustedProxy:
		return NewTrustedProxyResolver(trusted, nil)
	default:
		return nil, configError("unknown resolver %q", kind)
	}
}
