package observe

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrReaderFinished is raised (as a panic) when a Reader is used after the
// computation it was handed to has returned. Readers must not be retained.
var ErrReaderFinished = errors.New("observe: reader used after its computation finished")

// ErrCycle is returned when a Derived is read while it is recomputing,
// which means its computation depends on itself.
var ErrCycle = errors.New("observe: cyclic dependency")

// ErrDisposed is returned when reading a Derived or Async that was disposed.
var ErrDisposed = errors.New("observe: node disposed")

// ErrBudgetExceeded is reported when a commit exceeds its BudgetConfig.
// The remaining queued effects are dropped for that commit and run on the
// next change of any of their dependencies.
var ErrBudgetExceeded = errors.New("observe: commit budget exceeded")

// PanicError is a panic recovered from a computation, comparer or effect
// body and turned into an error.
type PanicError struct {
	Value any    // value passed to panic
	Stack []byte // stack at the point of recovery
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("observe: panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// catch runs fn and turns a panic into a *PanicError.
func catch(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = newPanicError(p)
		}
	}()
	return fn()
}
