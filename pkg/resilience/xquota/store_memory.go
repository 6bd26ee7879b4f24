package xquota

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count    int64
	expireAt time.Time
}

// MemoryStore 单进程内存计数，适合测试与本地开发。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
	closed  bool
}

// NewMemoryStore now 为 nil 时使用 time.Now。
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), now: now}
}

func (s *MemoryStore) Consume(ctx context.Context, key Key, limit int64, ttl time.Duration) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	if err := key.Validate(); err != nil {
		return Usage{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Usage{}, ErrStoreClosed
	}

	k := key.String()
	now := s.now()
	e, ok := s.entries[k]
	if ok && !e.expireAt.After(now) {
		e, ok = memoryEntry{}, false
	}
	if ok && e.count >= limit {
		return Usage{Count: e.count}, nil
	}
	e.count++
	e.expireAt = now.Add(ttl)
	s.entries[k] = e
	return Usage{Count: e.count, Admitted: true}, nil
}

func (s *MemoryStore) Peek(ctx context.Context, key Key) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	e, ok := s.entries[key.String()]
	if !ok || !e.expireAt.After(s.now()) {
		return 0, nil
	}
	return e.count, nil
}

func (s *MemoryStore) Reset(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
	return nil
}

// Sweep 删除已过期的记录，返回删除数量。
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, e := range s.entries {
		if !e.expireAt.After(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

func (s *MemoryStore) Type() string { return BackendMemory }

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = make(map[string]memoryEntry)
	return nil
}

var _ Store = (*MemoryStore)(nil)
