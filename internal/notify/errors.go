package notify

import (
	"errors"
	"fmt"
)

// ErrExternalCall matches every CallError.
var ErrExternalCall = errors.New("notify: external call failed")

// CallError wraps a failed messaging platform call with the operation name.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("notify: %s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrExternalCall) hold for every CallError.
func (e *CallError) Is(target error) bool { return target == ErrExternalCall }

// Code reports the stable error code used in handler logs.
func (e *CallError) Code() string { return "EXTERNAL_CALL_FAILURE" }

// Wrap returns nil for a nil err and a *CallError otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return err
	}
	return &CallError{Op: op, Err: err}
}
