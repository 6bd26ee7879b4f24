// Package xretry 基于 avast/retry-go/v5 的重试执行器。
//
// 错误可通过实现 [RetryableError] 声明自己是否可重试；
// [PermanentError] 与 [TemporaryError] 是两种现成的包装。
// 未声明的错误默认可重试。
//
//	r := xretry.NewRetryer(xretry.WithAttempts(3), xretry.WithBackoff(xretry.DefaultBackoff))
//	err := r.Do(ctx, call)
package xretry
