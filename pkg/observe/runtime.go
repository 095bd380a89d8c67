package observe

import (
	"context"
	"log/slog"
	"sync"
)

// Runtime holds the reactive state shared by a group of nodes: the open
// transaction, the instrumentation logger, live effects and the mailbox used
// to hand results from other goroutines back to the engine.
//
// A Runtime is single-threaded. Nodes of one runtime must only be read,
// written and disposed from one goroutine at a time. Post is the only method
// that may be called from any goroutine.
type Runtime struct {
	id uint64

	// logger receives lifecycle notifications. Never nil.
	logger Logger

	// logging is false while logger is a NopLogger, which lets hot paths
	// skip value formatting.
	logging bool

	// log receives engine diagnostics such as failed effect runs.
	log *slog.Logger

	debug  DebugConfig
	budget *commitBudget

	// current is the outermost open transaction, nil when none is open.
	current *Transaction

	// wave numbers begin-update pushes so a node reached twice through a
	// diamond is only visited once per push.
	wave uint64

	// effects keeps live effects reachable until they are disposed.
	// Dependencies only hold weak references to their observers.
	effects map[uint64]*Effect

	mailboxMu sync.Mutex
	mailbox   []func(tx *Transaction)
	posted    chan struct{}
}

// defaultRuntime backs the package-level constructors.
var defaultRuntime = NewRuntime()

// Default returns the runtime used by nodes created without InRuntime.
func Default() *Runtime {
	return defaultRuntime
}

// NewRuntime creates a new Runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		id:      nextID(),
		logger:  NopLogger{},
		log:     slog.Default().With("component", "observe"),
		debug:   DefaultDebugConfig(),
		budget:  newCommitBudget(BudgetConfig{}),
		effects: make(map[uint64]*Effect),
		posted:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// ID returns the unique identifier for this Runtime.
func (rt *Runtime) ID() uint64 {
	return rt.id
}

// SetLogger replaces the instrumentation logger. A nil logger restores the
// no-op logger.
func (rt *Runtime) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger{}
	}
	_, nop := l.(NopLogger)
	rt.logger = l
	rt.logging = !nop
}

// Logger returns the instrumentation logger.
func (rt *Runtime) Logger() Logger {
	return rt.logger
}

// Slog returns the diagnostics logger.
func (rt *Runtime) Slog() *slog.Logger {
	return rt.log
}

// Current returns the open transaction, or nil.
func (rt *Runtime) Current() *Transaction {
	return rt.current
}

// LiveEffects returns the number of effects that have not been disposed.
func (rt *Runtime) LiveEffects() int {
	return len(rt.effects)
}

// within runs fn inside a transaction: tx itself when given, else the open
// transaction, else an implicit one that commits when fn returns.
func (rt *Runtime) within(tx *Transaction, fn func(tx *Transaction)) {
	if tx != nil && !tx.done {
		fn(tx)
		return
	}
	if rt.current != nil {
		fn(rt.current)
		return
	}
	tx = rt.Begin("")
	defer tx.End()
	fn(tx)
}

// nextWave starts a new begin-update push.
func (rt *Runtime) nextWave() uint64 {
	rt.wave++
	return rt.wave
}

// format renders v for the logger, or returns "" when nothing listens.
func (rt *Runtime) format(v any) string {
	if !rt.logging {
		return ""
	}
	return FormatValue(v, rt.debug.FormatLimit)
}

// Post queues fn to run on the engine goroutine during the next Flush.
// It is safe to call from any goroutine.
func (rt *Runtime) Post(fn func(tx *Transaction)) {
	rt.mailboxMu.Lock()
	rt.mailbox = append(rt.mailbox, fn)
	rt.mailboxMu.Unlock()

	select {
	case rt.posted <- struct{}{}:
	default:
	}
}

// Posted returns a channel that receives a value after Post was called.
// Several posts may share one notification.
func (rt *Runtime) Posted() <-chan struct{} {
	return rt.posted
}

// Flush runs every posted function inside a single transaction and returns
// how many ran.
func (rt *Runtime) Flush() int {
	rt.mailboxMu.Lock()
	fns := rt.mailbox
	rt.mailbox = nil
	rt.mailboxMu.Unlock()

	if len(fns) == 0 {
		return 0
	}
	rt.TxNamed("flush", func(tx *Transaction) {
		for _, fn := range fns {
			fn(tx)
		}
	})
	return len(fns)
}

// Await blocks until something is posted or ctx is done, then flushes.
func (rt *Runtime) Await(ctx context.Context) (int, error) {
	select {
	case <-rt.posted:
		return rt.Flush(), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
