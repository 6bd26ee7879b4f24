package xquota

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// Decision 一次 CheckAndConsume 的结果。
//
// Admitted=false 即"超出每日配额"，这是正常结果而不是错误。
type Decision struct {
	// Admitted 是否放行（已消耗一个配额单位）
	Admitted bool

	// Limit 本次判定使用的配额
	Limit int

	// Remaining 当日剩余配额，拒绝时恒为 0。
	Remaining int

	// Count 本次判定后的计数
	Count int64

	// Day 计数所属的日期键
	Day string

	// ResetAt 配额重置时间（下一个本地零点）
	ResetAt time.Time

	// RetryAfter 距离重置的时间，仅拒绝时非零。
	RetryAfter time.Duration

	// Key 计数键，只含地址哈希，可安全记录。
	Key string
}

func admitted(limit int, count int64, day string, resetAt time.Time, key string) *Decision {
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return &Decision{
		Admitted:  true,
		Limit:     limit,
		Remaining: int(remaining),
		Count:     count,
		Day:       day,
		ResetAt:   resetAt,
		Key:       key,
	}
}

func rejected(limit int, count int64, day string, now, resetAt time.Time, key string) *Decision {
	return &Decision{
		Limit:      limit,
		Count:      count,
		Day:        day,
		ResetAt:    resetAt,
		RetryAfter: resetAt.Sub(now),
		Key:        key,
	}
}

// Code 拒绝时返回 CodeRateLimited，放行返回空串。
func (d *Decision) Code() Code {
	if d == nil || d.Admitted {
		return ""
	}
	return CodeRateLimited
}

// 限流响应头
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Headers 返回标准限流响应头。
// Retry-After 只在拒绝时出现，秒数向上取整。
func (d *Decision) Headers() map[string]string {
	headers := map[string]string{
		HeaderLimit:     strconv.Itoa(d.Limit),
		HeaderRemaining: strconv.Itoa(d.Remaining),
		HeaderReset:     strconv.FormatInt(d.ResetAt.Unix(), 10),
	}
	if !d.Admitted && d.RetryAfter > 0 {
		headers[HeaderRetryAfter] = strconv.FormatInt(int64(math.Ceil(d.RetryAfter.Seconds())), 10)
	}
	return headers
}

// SetHeaders 写入响应头，Limit <= 0 时跳过。
func (d *Decision) SetHeaders(w http.ResponseWriter) {
	if d == nil || d.Limit <= 0 {
		return
	}
	for k, v := range d.Headers() {
		w.Header().Set(k, v)
	}
}
