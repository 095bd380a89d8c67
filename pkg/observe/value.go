package observe

// Value is a mutable leaf cell. Reads through a Reader make the reading
// node depend on it; Set replaces the value and notifies observers.
//
// Example:
//
//	count := observe.NewValue("count", 0)
//	double := observe.Derive("double", func(r *observe.Reader) int {
//	    return count.Read(r) * 2
//	})
//	count.Set(5, nil)
//	v, _ := double.Get() // 10
type Value[T any] struct {
	node
	value T
	equal func(a, b T) bool
}

// NewValue creates a leaf cell holding initial.
func NewValue[T any](label string, initial T, opts ...Option) *Value[T] {
	o := applyOptions(opts)
	v := &Value[T]{
		node:  newNode(o.rt, KindValue, label),
		value: initial,
	}
	o.rt.logger.NodeCreated(v.info())
	return v
}

// Read returns the current value and, with a non-nil Reader, records it as
// a dependency of the reading node.
func (v *Value[T]) Read(r *Reader) T {
	if r != nil {
		r.check()
		r.track(v)
	}
	return v.value
}

// Get returns the current value without tracking.
func (v *Value[T]) Get() T {
	return v.value
}

// Set replaces the value. A nil tx folds the write into the open
// transaction, or into an implicit one that commits before Set returns.
// Setting a value equal to the current one does nothing.
//
// A panicking comparer propagates to the caller and leaves the value
// unchanged.
func (v *Value[T]) Set(value T, tx *Transaction) {
	if v.equals(v.value, value) {
		return
	}
	v.rt.within(tx, func(tx *Transaction) {
		old := v.value
		v.value = value
		v.version++
		if v.rt.logging {
			v.rt.logger.ValueChanged(v.info(), Change{
				HadValue:  true,
				DidChange: true,
				Old:       v.rt.format(old),
				New:       v.rt.format(value),
			})
		}
		v.pushStale(tx)
	})
}

// Update sets the value to fn(current).
func (v *Value[T]) Update(fn func(T) T, tx *Transaction) {
	v.Set(fn(v.value), tx)
}

// WithEquals sets a custom comparer and returns v for chaining.
func (v *Value[T]) WithEquals(fn func(a, b T) bool) *Value[T] {
	v.equal = fn
	return v
}

func (v *Value[T]) equals(a, b T) bool {
	if v.equal != nil {
		return v.equal(a, b)
	}
	return DefaultEquals(a, b)
}
