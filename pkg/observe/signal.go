package observe

// Signal is a leaf without a value. Trigger always invalidates its
// observers, which is useful to notify about changes the engine cannot see,
// such as mutation of an object held by a Value.
type Signal struct {
	node
}

// NewSignal creates a Signal.
func NewSignal(label string, opts ...Option) *Signal {
	o := applyOptions(opts)
	s := &Signal{node: newNode(o.rt, KindSignal, label)}
	o.rt.logger.NodeCreated(s.info())
	return s
}

// Read records the Signal as a dependency of the reading node.
func (s *Signal) Read(r *Reader) {
	if r != nil {
		r.check()
		r.track(s)
	}
}

// Trigger notifies every observer that something changed.
func (s *Signal) Trigger(tx *Transaction) {
	s.rt.within(tx, func(tx *Transaction) {
		s.version++
		s.rt.logger.ValueChanged(s.info(), Change{DidChange: true})
		s.pushStale(tx)
	})
}
