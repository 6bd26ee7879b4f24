// Package context 提供上下文相关的子包。
//
// 子包列表：
//   - xctx: 在 context 中传递请求 ID、追踪 ID 与客户端标识，并导出为日志属性
//
// 所有上下文信息通过 context.Context 传递，不使用全局变量。
package context
