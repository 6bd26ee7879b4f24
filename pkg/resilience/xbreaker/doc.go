// Package xbreaker 基于 sony/gobreaker/v2 的熔断器。
//
// 状态：
//   - StateClosed：正常放行，统计失败
//   - StateOpen：直接拒绝，返回 *BreakerError（包装 ErrOpenState）
//   - StateHalfOpen：放行少量探测请求
//
// 熔断拒绝实现 Retryable() == false，与 xretry 组合时不会被重试。
package xbreaker
