package xbreaker

import (
	"errors"
	"fmt"
)

var (
	ErrNilBreaker = errors.New("xbreaker: breaker cannot be nil")
	ErrNilContext = errors.New("xbreaker: context cannot be nil")
	ErrNilFunc    = errors.New("xbreaker: function cannot be nil")
)

// BreakerError 熔断拒绝错误。
//
// Retryable 返回 false，与 xretry 组合时熔断拒绝不会被重试。
type BreakerError struct {
	Err   error
	Name  string
	State State
}

func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

func (e *BreakerError) Unwrap() error { return e.Err }

func (e *BreakerError) Retryable() bool { return false }

// wrapBreakerError 只包装本熔断器直接返回的 sentinel，嵌套熔断器的错误保持原样。
func wrapBreakerError(err error, name string) error {
	if err == nil {
		return nil
	}
	var be *BreakerError
	if errors.As(err, &be) {
		return err
	}
	switch err { //nolint:errorlint // gobreaker 直接返回 sentinel
	case ErrOpenState:
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case ErrTooManyRequests:
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	}
	return err
}

// IsOpen 熔断器打开导致的拒绝
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpenState)
}

// IsBreakerError 熔断器拒绝（打开或半开满载），而非业务错误。
func IsBreakerError(err error) bool {
	return errors.Is(err, ErrOpenState) || errors.Is(err, ErrTooManyRequests)
}
