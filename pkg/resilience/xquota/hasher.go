package xquota

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hasher 把客户端地址变换为不可逆标识：hex(sha256(secret + ":" + addr))。
//
// 原始地址只在内存中参与计算，不会写入存储或日志。
type Hasher struct {
	secret string
}

// NewHasher secret 为空返回 ErrConfiguration。
func NewHasher(secret string) (*Hasher, error) {
	if secret == "" {
		return nil, secretMissing()
	}
	return &Hasher{secret: secret}, nil
}

// Hash 计算地址标识，返回 64 位小写十六进制。
func (h *Hasher) Hash(addr string) (string, error) {
	if h == nil || h.secret == "" {
		return "", secretMissing()
	}
	if addr == "" {
		return "", fmt.Errorf("%w: empty address", ErrAddressUnresolved)
	}
	sum := sha256.Sum256([]byte(h.secret + ":" + addr))
	return hex.EncodeToString(sum[:]), nil
}
