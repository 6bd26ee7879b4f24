package xretry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff 第 n 次失败后等待 Initial * Multiplier^(n-1)，上限 Max，再乘以 [1-Jitter, 1+Jitter] 的随机系数。
// 零值表示不等待。
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultBackoff 100ms 起，翻倍，最多 10s，抖动 10%。
var DefaultBackoff = Backoff{
	Initial:    100 * time.Millisecond,
	Max:        10 * time.Second,
	Multiplier: 2,
	Jitter:     0.1,
}

// Constant 固定间隔
func Constant(d time.Duration) Backoff {
	return Backoff{Initial: d, Max: d, Multiplier: 1}
}

// Delay failures 为已失败次数，从 1 开始。
func (b Backoff) Delay(failures int) time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	ceiling := max(b.Max, b.Initial)
	mult := max(b.Multiplier, 1)
	d := float64(b.Initial) * math.Pow(mult, float64(max(failures, 1)-1))
	if j := min(max(b.Jitter, 0), 1); j > 0 {
		d *= 1 + j*(2*rand.Float64()-1) //nolint:gosec // 抖动不需要密码学随机
	}
	// 指数溢出为 Inf，乘抖动后可能是 NaN
	if math.IsNaN(d) || d >= float64(ceiling) {
		return ceiling
	}
	return time.Duration(max(d, 0))
}
