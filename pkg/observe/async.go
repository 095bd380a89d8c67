package observe

import (
	"context"
	"fmt"
)

// AsyncStatus is the settlement state of an Async.
type AsyncStatus uint8

const (
	AsyncPending AsyncStatus = iota
	AsyncResolved
	AsyncFailed
)

// String returns the status name.
func (s AsyncStatus) String() string {
	switch s {
	case AsyncPending:
		return "pending"
	case AsyncResolved:
		return "resolved"
	case AsyncFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AsyncResult is the observable state of an Async. Value holds the last
// resolved value, also while a newer job is pending or after it failed.
type AsyncResult[T any] struct {
	Status AsyncStatus
	Value  T
	Err    error
}

// Job is the untracked part of an async computation. It runs on its own
// goroutine and must not read nodes. ctx is cancelled when the Async
// prepares a newer job or is disposed.
type Job[T any] func(ctx context.Context) (T, error)

// Async is a node whose value is produced by background work. A tracked
// prepare step reads the inputs and returns a Job; whenever an input
// changes, the running job is cancelled and a new one is prepared.
//
// Results are applied on the engine goroutine: call Runtime.Flush (or
// Runtime.Await) to settle finished jobs.
type Async[T any] struct {
	result *Value[AsyncResult[T]]
	effect *Effect
	ctx    context.Context
	cancel context.CancelFunc

	// epoch identifies the latest job; older settlements are ignored.
	epoch    uint64
	disposed bool
}

// DeriveAsync creates an Async. Jobs run with a context derived from ctx.
//
// Example:
//
//	user := observe.DeriveAsync(ctx, "user", func(r *observe.Reader) (observe.Job[User], error) {
//	    id := userID.Read(r)
//	    return func(ctx context.Context) (User, error) {
//	        return repo.Load(ctx, id)
//	    }, nil
//	})
func DeriveAsync[T any](ctx context.Context, label string, prepare func(r *Reader) (Job[T], error), opts ...Option) *Async[T] {
	o := applyOptions(opts)
	a := &Async[T]{ctx: ctx}
	a.result = &Value[AsyncResult[T]]{node: newNode(o.rt, KindAsync, label)}
	o.rt.logger.NodeCreated(a.result.info())

	a.effect = Autorun("prepare "+label, func(r *Reader) error {
		return a.prepare(r, prepare)
	}, append([]Option{InRuntime(o.rt)}, opts...)...)
	return a
}

func (a *Async[T]) prepare(r *Reader, prepare func(r *Reader) (Job[T], error)) error {
	a.stop()
	a.epoch++
	epoch := a.epoch
	last := a.result.Get().Value

	job, err := prepare(r)
	if err != nil {
		a.result.Set(AsyncResult[T]{Status: AsyncFailed, Value: last, Err: err}, nil)
		return nil
	}

	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	a.result.Set(AsyncResult[T]{Status: AsyncPending, Value: last}, nil)

	rt := a.result.rt
	go func() {
		var v T
		err := catch(func() error {
			var err error
			v, err = job(ctx)
			return err
		})
		rt.Post(func(tx *Transaction) {
			if a.disposed || a.epoch != epoch {
				return
			}
			a.stop()
			if err != nil {
				prev := a.result.Get().Value
				a.result.Set(AsyncResult[T]{Status: AsyncFailed, Value: prev, Err: err}, tx)
				return
			}
			a.result.Set(AsyncResult[T]{Status: AsyncResolved, Value: v}, tx)
		})
	}()
	return nil
}

func (a *Async[T]) stop() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// Read returns the current result and, with a non-nil Reader, records the
// Async as a dependency.
func (a *Async[T]) Read(r *Reader) AsyncResult[T] {
	if a.disposed {
		if r != nil {
			r.check()
		}
		return AsyncResult[T]{Status: AsyncFailed, Err: fmt.Errorf("%w: %s", ErrDisposed, a.result.info())}
	}
	return a.result.Read(r)
}

// Get returns the current result without tracking.
func (a *Async[T]) Get() AsyncResult[T] {
	return a.Read(nil)
}

// Dispose cancels the running job and stops reacting to input changes.
// Calling Dispose more than once is a no-op.
func (a *Async[T]) Dispose() {
	if a.disposed {
		return
	}
	a.disposed = true
	a.effect.Dispose()
	a.stop()
}

// ID returns the node's unique identifier.
func (a *Async[T]) ID() uint64 { return a.result.id }

// Label returns the debug label given at construction.
func (a *Async[T]) Label() string { return a.result.label }

// Kind returns KindAsync.
func (a *Async[T]) Kind() Kind { return KindAsync }

func (a *Async[T]) info() NodeInfo { return a.result.info() }
func (a *Async[T]) base() *node    { return &a.result.node }
func (a *Async[T]) refresh() error { return nil }
