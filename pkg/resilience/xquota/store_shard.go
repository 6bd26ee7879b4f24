package xquota

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/robfig/cron/v3"
)

const (
	defaultShardCount     = 16
	defaultShardPrefixLen = 4
	defaultShardQueueSize = 1024

	// DefaultJanitorSpec 每天本地 00:05 清理过期日期的记录
	DefaultJanitorSpec = "5 0 * * *"
)

type shardOp uint8

const (
	opConsume shardOp = iota
	opPeek
	opReset
	opPurge
)

type shardReq struct {
	op    shardOp
	key   Key
	limit int64
	day   string // opPurge: 早于此日期的记录被删除
	resp  chan shardResp
}

type shardResp struct {
	usage Usage
	n     int
}

type dayCount struct {
	day   string
	count int64
}

// shard 单一所有者：records 只被 run 所在的 goroutine 访问。
type shard struct {
	reqs    chan shardReq
	records map[string]dayCount
}

func (sh *shard) run(stop <-chan struct{}) {
	for {
		select {
		case req := <-sh.reqs:
			req.resp <- sh.handle(req)
		case <-stop:
			return
		}
	}
}

func (sh *shard) handle(req shardReq) shardResp {
	id := req.key.String()
	switch req.op {
	case opConsume:
		rec, ok := sh.records[id]
		if !ok {
			rec = dayCount{day: req.key.Day}
		}
		if rec.count >= req.limit {
			return shardResp{usage: Usage{Count: rec.count}}
		}
		rec.count++
		sh.records[id] = rec
		return shardResp{usage: Usage{Count: rec.count, Admitted: true}}
	case opPeek:
		return shardResp{usage: Usage{Count: sh.records[id].count}}
	case opReset:
		delete(sh.records, id)
		return shardResp{}
	case opPurge:
		n := 0
		for id, rec := range sh.records {
			if rec.day < req.day {
				delete(sh.records, id)
				n++
			}
		}
		return shardResp{n: n}
	}
	return shardResp{}
}

// ShardStore 分片单所有者计数。
//
// 按标识哈希前缀路由到固定分片，每个分片由一个 goroutine 串行处理，
// 同一标识的递增严格有序。记录按完整键存放，不同日期互不影响；
// 过期日期的记录由 cron 任务在日界后清理，ttl 参数不参与判定。
type ShardStore struct {
	shards    []*shard
	prefixLen int
	queueSize int
	clock     *DayClock
	janitor   string
	cron      *cron.Cron

	stop      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// ShardOption ShardStore 选项
type ShardOption func(*ShardStore)

// WithShardCount 分片数，默认 16。
func WithShardCount(n int) ShardOption {
	return func(s *ShardStore) {
		if n > 0 {
			s.shards = make([]*shard, n)
		}
	}
}

// WithShardPrefixLen 参与路由的哈希前缀长度，默认 4。
func WithShardPrefixLen(n int) ShardOption {
	return func(s *ShardStore) {
		if n > 0 {
			s.prefixLen = n
		}
	}
}

// WithShardQueueSize 每个分片的请求队列长度，默认 1024。
func WithShardQueueSize(n int) ShardOption {
	return func(s *ShardStore) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithShardClock 清理任务使用的时钟，应与网关一致。
func WithShardClock(c *DayClock) ShardOption {
	return func(s *ShardStore) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithShardJanitor cron 表达式（五段式），空串关闭定时清理。
func WithShardJanitor(spec string) ShardOption {
	return func(s *ShardStore) {
		s.janitor = spec
	}
}

// NewShardStore 创建并启动分片。
func NewShardStore(opts ...ShardOption) (*ShardStore, error) {
	s := &ShardStore{
		shards:    make([]*shard, defaultShardCount),
		prefixLen: defaultShardPrefixLen,
		queueSize: defaultShardQueueSize,
		janitor:   DefaultJanitorSpec,
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.clock == nil {
		clock, err := NewDayClock("", nil)
		if err != nil {
			return nil, err
		}
		s.clock = clock
	}

	if s.janitor != "" {
		s.cron = cron.New(cron.WithLocation(s.clock.Location()))
		if _, err := s.cron.AddFunc(s.janitor, s.purgeStale); err != nil {
			return nil, configError("janitor spec %q: %v", s.janitor, err)
		}
	}

	for i := range s.shards {
		sh := &shard{
			reqs:    make(chan shardReq, s.queueSize),
			records: make(map[string]dayCount),
		}
		s.shards[i] = sh
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sh.run(s.stop)
		}()
	}
	if s.cron != nil {
		s.cron.Start()
	}
	return s, nil
}

func (s *ShardStore) route(key Key) *shard {
	prefix := key.Hash
	if len(prefix) > s.prefixLen {
		prefix = prefix[:s.prefixLen]
	}
	return s.shards[xxhash.Sum64String(prefix)%uint64(len(s.shards))]
}

// send 投递请求并等待结果。请求一旦被分片接收，调用方取消不会撤销它。
func (s *ShardStore) send(ctx context.Context, sh *shard, req shardReq) (shardResp, error) {
	if s.closed.Load() {
		return shardResp{}, ErrStoreClosed
	}
	req.resp = make(chan shardResp, 1)
	select {
	case sh.reqs <- req:
	case <-ctx.Done():
		return shardResp{}, ctx.Err()
	case <-s.stop:
		return shardResp{}, ErrStoreClosed
	}
	select {
	case resp := <-req.resp:
		return resp, nil
	case <-ctx.Done():
		return shardResp{}, ctx.Err()
	case <-s.stop:
		return shardResp{}, ErrStoreClosed
	}
}

func (s *ShardStore) Consume(ctx context.Context, key Key, limit int64, _ time.Duration) (Usage, error) {
	if err := key.Validate(); err != nil {
		return Usage{}, err
	}
	resp, err := s.send(ctx, s.route(key), shardReq{op: opConsume, key: key, limit: limit})
	return resp.usage, err
}

func (s *ShardStore) Peek(ctx context.Context, key Key) (int64, error) {
	resp, err := s.send(ctx, s.route(key), shardReq{op: opPeek, key: key})
	return resp.usage.Count, err
}

func (s *ShardStore) Reset(ctx context.Context, key Key) error {
	_, err := s.send(ctx, s.route(key), shardReq{op: opReset, key: key})
	return err
}

// Purge 删除日期早于 today 的记录，返回删除数量。
func (s *ShardStore) Purge(ctx context.Context, today string) (int, error) {
	total := 0
	for _, sh := range s.shards {
		resp, err := s.send(ctx, sh, shardReq{op: opPurge, day: today})
		if err != nil {
			return total, fmt.Errorf("shard purge: %w", err)
		}
		total += resp.n
	}
	return total, nil
}

func (s *ShardStore) purgeStale() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_, _ = s.Purge(ctx, s.clock.Today()) //nolint:errcheck // 下次调度会再清理
}

// Ping 分片存活即可用
func (s *ShardStore) Ping(context.Context) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	return nil
}

func (s *ShardStore) Type() string { return BackendShard }

// Close 停止清理任务与所有分片，等待 goroutine 退出。
func (s *ShardStore) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

var (
	_ Store  = (*ShardStore)(nil)
	_ Pinger = (*ShardStore)(nil)
)
