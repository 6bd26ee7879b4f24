package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因系统信号终止，errors.Is(err, ErrSignal) 判断。
	ErrSignal = errors.New("received signal")

	ErrNilFunc   = errors.New("xrun: function cannot be nil")
	ErrNilServer = errors.New("xrun: server cannot be nil")
)

// SignalError 携带触发终止的信号
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "received signal <nil>"
	}
	return fmt.Sprintf("received signal %s", e.Signal)
}

func (e *SignalError) Is(target error) bool { return target == ErrSignal }

func (e *SignalError) Unwrap() error { return ErrSignal }
