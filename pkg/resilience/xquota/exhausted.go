package xquota

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// exhaustedCache 记住当日已耗尽的键，命中时直接拒绝，不访问存储。
//
// 只缓存拒绝结果：已耗尽的键在当日内不会再变为可用（不退还配额），
// 所以缓存只会让拒绝更早发生，不会多放行。值为写入时的配额，
// 配额变化后条目失效。
type exhaustedCache struct {
	lru *expirable.LRU[string, int64]
}

func newExhaustedCache(size int, ttl time.Duration) *exhaustedCache {
	if size <= 0 {
		return nil
	}
	return &exhaustedCache{lru: expirable.NewLRU[string, int64](size, nil, ttl)}
}

func (c *exhaustedCache) exhausted(key string, limit int64) bool {
	if c == nil {
		return false
	}
	v, ok := c.lru.Get(key)
	return ok && v == limit
}

func (c *exhaustedCache) mark(key string, limit int64) {
	if c == nil {
		return
	}
	c.lru.Add(key, limit)
}

func (c *exhaustedCache) forget(key string) {
	if c == nil {
		return
	}
	c.lru.Remove(key)
}

func (c *exhaustedCache) purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func (c *exhaustedCache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
