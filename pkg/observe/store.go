package observe

import (
	"io"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
)

// Disposable is a resource that can be released.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable.
type DisposeFunc func()

// Dispose calls f.
func (f DisposeFunc) Dispose() { f() }

// Store owns a set of resources and releases them together. Resources are
// released in reverse order of registration. Adding to a store that was
// already disposed releases the resource immediately.
//
// Unlike nodes, a Store may be used from any goroutine.
type Store struct {
	id uint64

	parent *Store

	mu        sync.Mutex
	resources []func() error
	children  []*Store

	disposed atomic.Bool
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{id: nextID()}
}

// ID returns the unique identifier of the store.
func (s *Store) ID() uint64 {
	return s.id
}

// IsDisposed reports whether the store was disposed.
func (s *Store) IsDisposed() bool {
	return s.disposed.Load()
}

// Len returns the number of resources and child stores held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resources) + len(s.children)
}

// Add takes ownership of d and returns it unchanged. A nil d, including a
// typed nil pointer or func, is ignored.
func (s *Store) Add(d Disposable) Disposable {
	if isNil(d) {
		return d
	}
	s.push(func() error {
		d.Dispose()
		return nil
	})
	return d
}

// Keep adds d to s and returns d with its concrete type.
//
// Example:
//
//	timer := observe.Keep(store, observe.DisposeFunc(stop))
func Keep[T Disposable](s *Store, d T) T {
	s.Add(d)
	return d
}

// OnDispose registers fn to run when the store is disposed.
func (s *Store) OnDispose(fn func()) {
	s.push(func() error {
		fn()
		return nil
	})
}

// AddCloser takes ownership of c. Its Close error is reported by Close.
func (s *Store) AddCloser(c io.Closer) {
	if isNil(c) {
		return
	}
	s.push(c.Close)
}

// isNil reports whether v is nil or an interface holding a nil pointer,
// func, map, chan or slice.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Child creates a store that is disposed together with s. Disposing the
// child first removes it from s.
func (s *Store) Child() *Store {
	child := NewStore()
	child.parent = s
	if s.disposed.Load() {
		child.Dispose()
		return child
	}
	s.mu.Lock()
	s.children = append(s.children, child)
	s.mu.Unlock()
	return child
}

func (s *Store) removeChild(child *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

func (s *Store) push(fn func() error) {
	if s.disposed.Load() {
		_ = fn()
		return
	}
	s.mu.Lock()
	if s.disposed.Load() {
		s.mu.Unlock()
		_ = fn()
		return
	}
	s.resources = append(s.resources, fn)
	s.mu.Unlock()
}

// Dispose releases every resource. Calling Dispose more than once is a
// no-op.
func (s *Store) Dispose() {
	_ = s.Close()
}

// Close releases every resource and returns the errors of the closers
// added with AddCloser. Only the first call releases anything.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.disposed.Swap(true) {
		s.mu.Unlock()
		return nil
	}
	resources := s.resources
	children := s.children
	s.resources = nil
	s.children = nil
	s.mu.Unlock()

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	var result *multierror.Error
	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for i := len(resources) - 1; i >= 0; i-- {
		if err := resources[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
