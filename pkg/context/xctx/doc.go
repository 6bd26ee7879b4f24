// Package xctx 请求级 context 字段：request_id、trace_id、client_hash。
//
// 写入函数接受 nil ctx（按 context.Background 处理），读取函数在字段缺失时返回空串。
// client_hash 只存哈希，原始客户端地址不进入 context。
//
// xlog 通过 [AppendLogAttrs] 把这些字段写入每条日志。
package xctx
