// Package xquota 按客户端地址计数的每日配额网关。
//
// 每个地址（规范化后）在一个自然日内最多通过 Limit 次，日界由配置的时区决定。
// 地址不会以明文保存：计数键为 "{prefix}:{day}:{hash}"，
// hash = hex(sha256(secret + ":" + addr))。
//
// # 失败即拒绝
//
// 缺少密钥、无法确定地址、存储超时或不可用时，[Gate.CheckAndConsume] 返回错误，
// 调用方必须拒绝请求。超出配额不是错误，而是 Admitted=false 的 [Decision]。
// 三类错误可用 errors.Is 区分：[ErrConfiguration]、[ErrAddressUnresolved]、
// [ErrStoreUnavailable]。
//
// # 存储
//
//   - [RedisStore]：Lua 脚本原子完成"比较并递增"，多实例共享
//   - [EtcdStore]：以 ModRevision 为条件的事务，冲突重试
//   - [ShardStore]：单进程分片，每个分片由一个 goroutine 独占
//   - [MemoryStore]：测试与本地开发
//
// [NewBreakerStore] 为任一存储加熔断，连续失败后立即拒绝而不是等待超时。
//
// # 使用
//
//	store, _ := xquota.NewRedisStore(rdb)
//	gate := xquota.New(xquota.Config{Limit: 3, Secret: salt}, store)
//	if err := gate.ConfigErr(); err != nil {
//		log.Fatal(err)
//	}
//	r.With(xquota.HTTPMiddleware(gate)).Post("/prioritize", handler)
package xquota
