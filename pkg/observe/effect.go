package observe

// EffectState is the scheduling state of an Effect.
type EffectState uint8

const (
	// EffectIdle means the effect waits for a dependency to change.
	EffectIdle EffectState = iota

	// EffectScheduled means the effect is queued for the next commit pass.
	EffectScheduled

	// EffectRunning means the body is executing.
	EffectRunning

	// EffectDisposed means the effect was disposed and never runs again.
	EffectDisposed
)

// String returns the state name.
func (s EffectState) String() string {
	switch s {
	case EffectIdle:
		return "idle"
	case EffectScheduled:
		return "scheduled"
	case EffectRunning:
		return "running"
	case EffectDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Effect runs a side-effecting body whenever a node it read changed. The
// body runs once at creation, then at most once per commit pass of a
// transaction that changed one of its dependencies. Effects of one pass run
// in enqueue order (see Transaction).
//
// An Effect stays alive until Dispose is called, even if nothing else
// references it.
type Effect struct {
	id    uint64
	label string
	rt    *Runtime

	fn        func(r *Reader, s *Store) error
	withStore bool
	store     *Store
	cell      *observerCell
	deps      []edge
	onError   func(error)

	running  bool
	disposed bool

	// queued is set while the effect sits in a transaction queue.
	queued bool

	// forced makes the next scheduled pass run the body without checking
	// dependencies. Set when a commit budget dropped the effect.
	forced bool

	wave uint64
	runs int
}

// Autorun creates an Effect and runs it immediately.
//
// Example:
//
//	e := observe.Autorun("log", func(r *observe.Reader) error {
//	    fmt.Println("count is", count.Read(r))
//	    return nil
//	})
//	defer e.Dispose()
func Autorun(label string, fn func(r *Reader) error, opts ...Option) *Effect {
	e := newEffect(label, func(r *Reader, _ *Store) error {
		return fn(r)
	}, false, opts)
	e.start()
	return e
}

// AutorunWithStore creates an Effect whose body receives a fresh Store on
// every run. The previous run's store is disposed before the next run
// starts and when the Effect is disposed.
func AutorunWithStore(label string, fn func(r *Reader, s *Store) error, opts ...Option) *Effect {
	e := newEffect(label, fn, true, opts)
	e.start()
	return e
}

// OnUpdate creates an effect that skips the callback on the first run.
// The deps function establishes dependencies; callback only runs on
// later runs caused by changes of those dependencies.
//
// Example:
//
//	observe.OnUpdate("saved",
//	    func(r *observe.Reader) error { _ = doc.Read(r); return nil },
//	    func() { fmt.Println("document changed") },
//	)
func OnUpdate(label string, deps func(r *Reader) error, callback func(), opts ...Option) *Effect {
	first := true
	return Autorun(label, func(r *Reader) error {
		if err := deps(r); err != nil {
			return err
		}
		if first {
			first = false
			return nil
		}
		callback()
		return nil
	}, opts...)
}

// KeepWarm observes src so that it is recomputed eagerly on every relevant
// change instead of on its next read. Dispose the returned Effect to stop.
func KeepWarm(src Source, opts ...Option) *Effect {
	opts = append([]Option{InRuntime(src.base().rt)}, opts...)
	return Autorun("keep-warm "+src.Label(), func(r *Reader) error {
		// Errors surface to the readers of src.
		_ = r.observe(src)
		return nil
	}, opts...)
}

func newEffect(label string, fn func(*Reader, *Store) error, withStore bool, opts []Option) *Effect {
	o := applyOptions(opts)
	e := &Effect{
		id:        nextID(),
		label:     label,
		rt:        o.rt,
		fn:        fn,
		withStore: withStore,
		onError:   o.onError,
	}
	e.cell = &observerCell{o: e}
	return e
}

func (e *Effect) start() {
	e.rt.effects[e.id] = e
	e.rt.logger.EffectCreated(e.info())
	e.rt.within(nil, func(*Transaction) {
		e.run()
	})
}

// ID returns the effect's unique identifier.
func (e *Effect) ID() uint64 { return e.id }

// Label returns the debug label given at construction.
func (e *Effect) Label() string { return e.label }

// Kind returns KindEffect.
func (e *Effect) Kind() Kind { return KindEffect }

func (e *Effect) info() NodeInfo {
	return NodeInfo{ID: e.id, Kind: KindEffect, Label: e.label}
}

// State returns the scheduling state.
func (e *Effect) State() EffectState {
	switch {
	case e.disposed:
		return EffectDisposed
	case e.running:
		return EffectRunning
	case e.queued:
		return EffectScheduled
	default:
		return EffectIdle
	}
}

// Runs returns how many times the body has run.
func (e *Effect) Runs() int {
	return e.runs
}

// Dispose deregisters the effect from its dependencies. It never runs
// again. Disposing from inside the body takes effect when the body
// returns. Calling Dispose more than once is a no-op.
func (e *Effect) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	releaseAll(e.id, e.deps)
	e.deps = nil
	delete(e.rt.effects, e.id)
	if !e.running && e.store != nil {
		e.store.Dispose()
		e.store = nil
	}
}

func (e *Effect) markStale(wave uint64, tx *Transaction) {
	if e.disposed || e.wave == wave {
		return
	}
	e.wave = wave
	e.schedule(tx)
}

func (e *Effect) schedule(tx *Transaction) {
	if e.queued {
		return
	}
	e.queued = true
	tx.queue = append(tx.queue, e)
}

// needsRun reports whether a dependency changed since the last run.
func (e *Effect) needsRun() bool {
	return e.forced || depsChanged(e.deps)
}

func (e *Effect) run() {
	e.forced = false
	e.running = true
	e.rt.logger.EffectRan(e.info())
	if e.rt.debug.LogEffectRuns {
		e.rt.log.Debug("effect run", "effect", e.label, "id", e.id, "run", e.runs+1)
	}

	if e.store != nil {
		e.store.Dispose()
		e.store = nil
	}
	var s *Store
	if e.withStore {
		s = NewStore()
		e.store = s
	}

	r := newReader(e.info(), e.cell)
	err := catch(func() error {
		return e.fn(r, s)
	})
	deps := r.finish()
	e.running = false
	e.runs++

	if e.disposed {
		releaseAll(e.id, deps)
		if e.store != nil {
			e.store.Dispose()
			e.store = nil
		}
	} else {
		release(e.id, e.deps, deps)
		e.deps = deps
	}

	e.rt.logger.EffectFinished(e.info(), err)
	if err != nil {
		e.report(err)
	}
}

func (e *Effect) report(err error) {
	if e.onError != nil {
		e.onError(err)
		return
	}
	e.rt.log.Error("effect failed", "effect", e.label, "id", e.id, "error", err)
}
