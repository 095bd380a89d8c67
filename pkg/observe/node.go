package observe

import (
	"slices"
	"weak"
)

// Node is implemented by every reactive node.
type Node interface {
	ID() uint64
	Label() string
	Kind() Kind
	info() NodeInfo
}

// Source is a node that can be read inside a computation: Value, Signal
// and Derived.
type Source interface {
	Node
	source
}

// source is the pull side of a node: it brings its value up to date and
// exposes the version observers compare against.
type source interface {
	base() *node
	refresh() error
}

// observer is the push side: it is told that one of its dependencies may
// have changed.
type observer interface {
	markStale(wave uint64, tx *Transaction)
}

// observerCell anchors an observer for weak references. Each observer owns
// exactly one cell, so the weak pointer dies with the observer.
type observerCell struct {
	o observer
}

type observerRef struct {
	id  uint64
	ptr weak.Pointer[observerCell]
}

// node holds the identity, version and observer back-references shared by
// Value, Signal and Derived.
type node struct {
	id    uint64
	kind  Kind
	label string
	rt    *Runtime

	// version bumps once per confirmed change of the node's value.
	version uint64

	// observers are weak so that an unobserved Derived can be collected
	// even while it is still registered with its dependencies.
	observers []observerRef
}

func newNode(rt *Runtime, kind Kind, label string) node {
	return node{id: nextID(), kind: kind, label: label, rt: rt}
}

// ID returns the node's unique identifier.
func (n *node) ID() uint64 { return n.id }

// Label returns the debug label given at construction.
func (n *node) Label() string { return n.label }

// Kind returns the node kind.
func (n *node) Kind() Kind { return n.kind }

// Runtime returns the runtime the node belongs to.
func (n *node) Runtime() *Runtime { return n.rt }

func (n *node) info() NodeInfo {
	return NodeInfo{ID: n.id, Kind: n.kind, Label: n.label}
}

func (n *node) base() *node { return n }

// refresh is a no-op for leaves: their value is always current.
func (n *node) refresh() error { return nil }

// ObserverCount returns the number of live observers.
func (n *node) ObserverCount() int {
	n.prune()
	return len(n.observers)
}

// addObserver registers the observer behind cell. Deduplicates by id.
func (n *node) addObserver(id uint64, cell *observerCell) {
	for _, ref := range n.observers {
		if ref.id == id {
			return
		}
	}
	n.observers = append(n.observers, observerRef{id: id, ptr: weak.Make(cell)})
	n.rt.logger.ObserverCountChanged(n.info(), len(n.observers))
}

// removeObserver deregisters an observer. Registration order of the
// remaining observers is preserved.
func (n *node) removeObserver(id uint64) {
	for i, ref := range n.observers {
		if ref.id == id {
			n.observers = slices.Delete(n.observers, i, i+1)
			n.rt.logger.ObserverCountChanged(n.info(), len(n.observers))
			return
		}
	}
}

// prune drops references to observers that were garbage collected and
// returns the live ones in registration order.
func (n *node) prune() []observer {
	if len(n.observers) == 0 {
		return nil
	}
	live := make([]observer, 0, len(n.observers))
	kept := n.observers[:0]
	for _, ref := range n.observers {
		if cell := ref.ptr.Value(); cell != nil {
			live = append(live, cell.o)
			kept = append(kept, ref)
		}
	}
	dropped := len(n.observers) - len(kept)
	clear(n.observers[len(kept):])
	n.observers = kept
	if dropped > 0 {
		n.rt.logger.ObserverCountChanged(n.info(), len(kept))
	}
	return live
}

// forward marks every live observer possibly stale for the given wave.
// It iterates over a copy, so observers may subscribe or unsubscribe while
// being notified.
func (n *node) forward(wave uint64, tx *Transaction) {
	for _, o := range n.prune() {
		o.markStale(wave, tx)
	}
}

// pushStale starts a begin-update push from this node.
func (n *node) pushStale(tx *Transaction) {
	n.forward(n.rt.nextWave(), tx)
}
