package observe

import "fmt"

// DerivedState is the cache state of a Derived.
type DerivedState uint8

const (
	// NoValue means nothing is cached. The next read recomputes.
	NoValue DerivedState = iota

	// UpToDate means the cached value reflects the current dependencies.
	UpToDate

	// PossiblyStale means a dependency may have changed. The next read
	// checks the dependencies and recomputes only if one of them moved.
	PossiblyStale

	// Recomputing means the computation is running.
	Recomputing
)

// String returns the state name.
func (s DerivedState) String() string {
	switch s {
	case NoValue:
		return "no-value"
	case UpToDate:
		return "up-to-date"
	case PossiblyStale:
		return "possibly-stale"
	case Recomputing:
		return "recomputing"
	default:
		return "unknown"
	}
}

// Derived is a cached value computed from other nodes. It recomputes
// lazily: a change of a dependency only marks it possibly stale, and the
// computation runs on the next read if a dependency really changed.
//
// Errors returned or panicked by the computation are handed to the reader
// and never cached, so the following read tries again.
type Derived[T any] struct {
	node

	compute   func(r *Reader, s *Store) (T, error)
	withStore bool
	store     *Store
	cell      *observerCell

	value    T
	hasValue bool
	state    DerivedState

	// forced makes the next refresh recompute even if no dependency moved.
	forced bool

	// invalidated records a push that arrived while recomputing.
	invalidated bool

	disposed bool
	wave     uint64
	deps     []edge

	equal    func(a, b T) bool
	fallback FallbackPolicy
}

// Derive creates a Derived from a computation that cannot fail.
func Derive[T any](label string, fn func(r *Reader) T, opts ...Option) *Derived[T] {
	return newDerived(label, func(r *Reader, _ *Store) (T, error) {
		return fn(r), nil
	}, false, opts)
}

// DeriveErr creates a Derived from a computation that may fail.
func DeriveErr[T any](label string, fn func(r *Reader) (T, error), opts ...Option) *Derived[T] {
	return newDerived(label, func(r *Reader, _ *Store) (T, error) {
		return fn(r)
	}, false, opts)
}

// DeriveWithStore creates a Derived whose computation receives a fresh
// Store on every run. The previous run's store is disposed before the next
// run starts and when the Derived is disposed.
func DeriveWithStore[T any](label string, fn func(r *Reader, s *Store) (T, error), opts ...Option) *Derived[T] {
	return newDerived(label, fn, true, opts)
}

func newDerived[T any](label string, fn func(*Reader, *Store) (T, error), withStore bool, opts []Option) *Derived[T] {
	o := applyOptions(opts)
	d := &Derived[T]{
		node:      newNode(o.rt, KindDerived, label),
		compute:   fn,
		withStore: withStore,
		fallback:  o.fallback,
	}
	d.cell = &observerCell{o: d}
	o.rt.logger.NodeCreated(d.info())
	return d
}

// Read returns the current value, recomputing first if needed. With a
// non-nil Reader the Derived is recorded as a dependency of the reading
// node, also when an error is returned.
func (d *Derived[T]) Read(r *Reader) (T, error) {
	if r != nil {
		r.check()
	}
	if d.disposed {
		var zero T
		return zero, d.errDisposed()
	}

	err := d.refresh()
	if r != nil {
		r.track(d)
	}
	if err != nil {
		if d.fallback == FallbackLastValue && d.hasValue {
			return d.value, nil
		}
		var zero T
		return zero, err
	}
	return d.value, nil
}

// Get returns the current value without tracking.
func (d *Derived[T]) Get() (T, error) {
	return d.Read(nil)
}

// State returns the cache state.
func (d *Derived[T]) State() DerivedState {
	return d.state
}

// IsDisposed reports whether Dispose was called.
func (d *Derived[T]) IsDisposed() bool {
	return d.disposed
}

// WithEquals sets the comparer used to decide whether a recompute changed
// the value, and returns d for chaining.
func (d *Derived[T]) WithEquals(fn func(a, b T) bool) *Derived[T] {
	d.equal = fn
	return d
}

// Dispose deregisters the Derived from its dependencies and drops the
// cached value. Calling Dispose more than once is a no-op.
func (d *Derived[T]) Dispose() {
	if d.disposed {
		return
	}
	d.disposed = true
	releaseAll(d.id, d.deps)
	d.deps = nil

	var zero T
	d.value = zero
	d.hasValue = false
	if d.state != Recomputing {
		d.state = NoValue
		if d.store != nil {
			d.store.Dispose()
			d.store = nil
		}
	}
	d.rt.logger.DerivedCleared(d.info())
}

func (d *Derived[T]) markStale(wave uint64, tx *Transaction) {
	if d.disposed || d.wave == wave {
		return
	}
	d.wave = wave
	switch d.state {
	case UpToDate:
		d.state = PossiblyStale
	case Recomputing:
		d.invalidated = true
	}
	d.forward(wave, tx)
}

// refresh brings the cached value up to date.
func (d *Derived[T]) refresh() error {
	if d.disposed {
		return d.errDisposed()
	}

	switch d.state {
	case UpToDate:
		return nil
	case Recomputing:
		return fmt.Errorf("%w: %s", ErrCycle, d.info())
	case PossiblyStale:
		if d.forced {
			break
		}
		// Held in Recomputing while dependencies refresh so a cycle
		// through them ends in ErrCycle.
		d.state = Recomputing
		d.invalidated = false
		moved := depsChanged(d.deps)
		if d.disposed {
			d.state = NoValue
			return d.errDisposed()
		}
		if !moved && !d.invalidated {
			d.state = UpToDate
			return nil
		}
	}
	return d.recompute()
}

func (d *Derived[T]) recompute() error {
	if d.store != nil {
		d.store.Dispose()
		d.store = nil
	}
	var s *Store
	if d.withStore {
		s = NewStore()
		d.store = s
	}

	d.state = Recomputing
	d.invalidated = false

	r := newReader(d.info(), d.cell)
	var value T
	err := catch(func() error {
		var err error
		value, err = d.compute(r, s)
		return err
	})
	deps := r.finish()
	release(d.id, d.deps, deps)
	d.deps = deps

	if d.disposed {
		releaseAll(d.id, d.deps)
		d.deps = nil
		d.state = NoValue
		if s != nil {
			s.Dispose()
		}
		d.store = nil
		return d.errDisposed()
	}

	var did bool
	if err == nil {
		did, err = d.differs(value)
	}
	if err != nil {
		d.fail()
		return err
	}

	had, old := d.hasValue, d.value
	if did {
		d.value = value
		d.hasValue = true
		d.version++
	}
	d.forced = false
	d.state = UpToDate
	if d.invalidated {
		d.state = PossiblyStale
	}

	if d.rt.logging {
		c := Change{HadValue: had, DidChange: did, New: d.rt.format(value)}
		if had {
			c.Old = d.rt.format(old)
		}
		d.rt.logger.DerivedRecomputed(d.info(), c)
	}
	return nil
}

// differs compares value with the cache. A panicking comparer is an error
// of this node.
func (d *Derived[T]) differs(value T) (did bool, err error) {
	if !d.hasValue {
		return true, nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = newPanicError(p)
		}
	}()
	if d.equal != nil {
		return !d.equal(d.value, value), nil
	}
	return !DefaultEquals(d.value, value), nil
}

// fail leaves the node non-current after a failed recompute.
func (d *Derived[T]) fail() {
	if d.fallback == FallbackLastValue && d.hasValue {
		d.state = PossiblyStale
		d.forced = true
		return
	}
	d.state = NoValue
	d.forced = false
	if d.hasValue {
		var zero T
		d.value = zero
		d.hasValue = false
		d.rt.logger.DerivedCleared(d.info())
	}
}

func (d *Derived[T]) errDisposed() error {
	return fmt.Errorf("%w: %s", ErrDisposed, d.info())
}
