package observe

import "fmt"

// Reader is handed to every Derived computation and Effect body. Each read
// through it records a dependency of the running node. A Reader is valid
// only until the call it was handed to returns; using it afterwards panics
// with ErrReaderFinished.
//
// Reads with a nil Reader are untracked.
type Reader struct {
	owner NodeInfo
	cell  *observerCell

	// deps are recorded in first-read order.
	deps []edge
	seen map[uint64]struct{}
	done bool
}

// edge is an observer-to-dependency edge with the version seen at read time.
type edge struct {
	src     source
	version uint64
}

func newReader(owner NodeInfo, cell *observerCell) *Reader {
	return &Reader{
		owner: owner,
		cell:  cell,
		seen:  make(map[uint64]struct{}),
	}
}

// Owner returns the node whose computation this Reader belongs to.
func (r *Reader) Owner() NodeInfo {
	return r.owner
}

// Active reports whether the Reader may still be used.
func (r *Reader) Active() bool {
	return r != nil && !r.done
}

func (r *Reader) check() {
	if r.done {
		panic(fmt.Errorf("%w (owner %s)", ErrReaderFinished, r.owner))
	}
}

// track records s as a dependency and subscribes the owner to it right
// away, so writes made while the computation is still running reach it.
// The first read of a node wins; later reads of the same node are ignored.
func (r *Reader) track(s source) {
	b := s.base()
	if _, ok := r.seen[b.id]; ok {
		return
	}
	r.seen[b.id] = struct{}{}
	r.deps = append(r.deps, edge{src: s, version: b.version})
	b.addObserver(r.owner.ID, r.cell)
}

// observe refreshes and tracks s without returning its value.
func (r *Reader) observe(s source) error {
	r.check()
	err := s.refresh()
	r.track(s)
	return err
}

// finish ends the Reader and returns the recorded dependencies.
func (r *Reader) finish() []edge {
	r.done = true
	deps := r.deps
	r.deps, r.seen, r.cell = nil, nil, nil
	return deps
}

// release unsubscribes id from every dependency in prev that no longer
// appears in next.
func release(id uint64, prev, next []edge) {
	if len(prev) == 0 {
		return
	}
	keep := make(map[uint64]struct{}, len(next))
	for _, e := range next {
		keep[e.src.base().id] = struct{}{}
	}
	for _, e := range prev {
		if _, ok := keep[e.src.base().id]; !ok {
			e.src.base().removeObserver(id)
		}
	}
}

// releaseAll unsubscribes id from every dependency.
func releaseAll(id uint64, deps []edge) {
	for _, e := range deps {
		e.src.base().removeObserver(id)
	}
}

// depsChanged brings each dependency up to date in recorded order and reports
// whether any of them failed or moved past the recorded version.
func depsChanged(deps []edge) bool {
	for _, e := range deps {
		if err := e.src.refresh(); err != nil {
			return true
		}
		if e.src.base().version != e.version {
			return true
		}
	}
	return false
}
