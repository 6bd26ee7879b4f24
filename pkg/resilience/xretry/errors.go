package xretry

import "errors"

var (
	ErrNilRetryer = errors.New("xretry: retryer cannot be nil")
	ErrNilContext = errors.New("xretry: context cannot be nil")
	ErrNilFunc    = errors.New("xretry: function cannot be nil")
)

// RetryableError 自行声明是否可重试的错误
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 不应重试的错误
type PermanentError struct {
	Err error
}

func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error   { return e.Err }
func (e *PermanentError) Retryable() bool { return false }

// TemporaryError 应当重试的错误
type TemporaryError struct {
	Err error
}

func NewTemporaryError(err error) *TemporaryError {
	return &TemporaryError{Err: err}
}

func (e *TemporaryError) Error() string {
	if e.Err == nil {
		return "temporary error"
	}
	return e.Err.Error()
}

func (e *TemporaryError) Unwrap() error   { return e.Err }
func (e *TemporaryError) Retryable() bool { return true }

// IsRetryable nil 不重试；实现 RetryableError 的按其声明；其余默认可重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return true
}

// IsPermanent 与 IsRetryable 相反，nil 返回 false。
func IsPermanent(err error) bool {
	return err != nil && !IsRetryable(err)
}
