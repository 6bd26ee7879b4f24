package xbreaker

import "errors"

// TripFunc 返回 true 时 Closed 转 Open
type TripFunc func(counts Counts) bool

// ConsecutiveFailures 连续失败 n 次，n 为 0 按 1 处理。
func ConsecutiveFailures(n uint32) TripFunc {
	n = max(n, 1)
	return func(c Counts) bool { return c.ConsecutiveFailures >= n }
}

// FailureRatio 至少 minRequests 次请求且失败率达到 ratio（截断到 [0,1]）。
func FailureRatio(ratio float64, minRequests uint32) TripFunc {
	ratio = min(max(ratio, 0), 1)
	return func(c Counts) bool {
		if c.Requests == 0 || c.Requests < minRequests {
			return false
		}
		return float64(c.TotalFailures) >= ratio*float64(c.Requests)
	}
}

// AnyOf 任一条件满足即熔断，nil 忽略。
func AnyOf(trips ...TripFunc) TripFunc {
	return func(c Counts) bool {
		for _, trip := range trips {
			if trip != nil && trip(c) {
				return true
			}
		}
		return false
	}
}

// SuccessFunc 返回 true 的错误不计为失败
type SuccessFunc func(err error) bool

// IgnoreErrors 匹配 errs 的错误（errors.Is）算作成功。
func IgnoreErrors(errs ...error) SuccessFunc {
	return func(err error) bool {
		if err == nil {
			return true
		}
		for _, target := range errs {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}
