package xquota

import (
	"fmt"
	"strings"
)

// DefaultKeyPrefix 默认键命名空间
const DefaultKeyPrefix = "rl"

// Key 计数键：命名空间 + 日期 + 标识哈希。
//
// 日期是键的一部分，跨日的计数天然不会冲突；TTL 只负责回收旧键。
type Key struct {
	Prefix string
	Day    string
	Hash   string
}

// String 返回 "{prefix}:{day}:{hash}"
func (k Key) String() string {
	prefix := k.Prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + ":" + k.Day + ":" + k.Hash
}

// Validate 检查 Day 与 Hash 非空且不含分隔符。
func (k Key) Validate() error {
	if k.Day == "" || k.Hash == "" {
		return fmt.Errorf("%w: day and hash are required", ErrInvalidKey)
	}
	if strings.Contains(k.Day, ":") || strings.Contains(k.Hash, ":") {
		return fmt.Errorf("%w: separator in key part", ErrInvalidKey)
	}
	return nil
}

// ParseKey 解析 String 的输出。
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	k := Key{Prefix: parts[0], Day: parts[1], Hash: parts[2]}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}
