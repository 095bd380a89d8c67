package observe

import "log/slog"

// DefaultFormatLimit is the default maximum length of a formatted value
// handed to a Logger.
const DefaultFormatLimit = 100

// DefaultMaxPassesPerCommit bounds how many effect passes a single commit
// may run before the remaining queue is dropped.
const DefaultMaxPassesPerCommit = 100

// DebugConfig controls debugging features of a Runtime.
type DebugConfig struct {
	// FormatLimit caps formatted values passed to the Logger.
	// Default: DefaultFormatLimit.
	FormatLimit int

	// LogEffectRuns logs each effect run on the runtime's slog logger at
	// debug level.
	// Default: false.
	LogEffectRuns bool

	// LogBudget logs a warning whenever the commit budget is exceeded.
	// Default: true.
	LogBudget bool
}

// DefaultDebugConfig returns a DebugConfig with the default settings.
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{
		FormatLimit:   DefaultFormatLimit,
		LogEffectRuns: false,
		LogBudget:     true,
	}
}

// BudgetConfig limits how much work one commit may do. It protects against
// effects that keep rescheduling each other (or themselves) by writing to
// values they depend on.
type BudgetConfig struct {
	// MaxPassesPerCommit is the maximum number of effect passes per commit.
	// Zero means DefaultMaxPassesPerCommit.
	MaxPassesPerCommit int

	// MaxEffectRunsPerCommit is the maximum number of effect runs per
	// commit. Zero means unlimited.
	MaxEffectRunsPerCommit int
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithLogger sets the instrumentation logger.
func WithLogger(l Logger) RuntimeOption {
	return func(rt *Runtime) {
		rt.SetLogger(l)
	}
}

// WithSlog sets the logger used for engine diagnostics such as failed
// effect runs.
func WithSlog(l *slog.Logger) RuntimeOption {
	return func(rt *Runtime) {
		if l != nil {
			rt.log = l
		}
	}
}

// WithDebug sets the debug configuration.
func WithDebug(cfg DebugConfig) RuntimeOption {
	return func(rt *Runtime) {
		if cfg.FormatLimit <= 0 {
			cfg.FormatLimit = DefaultFormatLimit
		}
		rt.debug = cfg
	}
}

// WithBudget sets the commit budget.
func WithBudget(cfg BudgetConfig) RuntimeOption {
	return func(rt *Runtime) {
		rt.budget = newCommitBudget(cfg)
	}
}

// FallbackPolicy decides what a Derived returns while its value cannot be
// produced.
type FallbackPolicy int

const (
	// FallbackNone surfaces the error (ErrCycle or the computation error).
	FallbackNone FallbackPolicy = iota

	// FallbackLastValue returns the last successfully computed value, if
	// any, during an in-progress or failed recompute.
	FallbackLastValue
)

// String returns the policy name.
func (p FallbackPolicy) String() string {
	switch p {
	case FallbackNone:
		return "none"
	case FallbackLastValue:
		return "last-value"
	default:
		return "unknown"
	}
}

// nodeOptions holds the per-node settings applied by Option.
type nodeOptions struct {
	rt       *Runtime
	fallback FallbackPolicy
	onError  func(error)
}

// Option configures a node at construction.
type Option func(*nodeOptions)

// InRuntime creates the node in rt instead of the default runtime.
func InRuntime(rt *Runtime) Option {
	return func(o *nodeOptions) {
		o.rt = rt
	}
}

// WithFallback sets the fallback policy of a Derived. It is ignored by
// other node kinds.
func WithFallback(p FallbackPolicy) Option {
	return func(o *nodeOptions) {
		o.fallback = p
	}
}

// OnError sets the handler that receives errors of an Effect's runs.
// Without it, errors are logged on the runtime's slog logger.
func OnError(fn func(error)) Option {
	return func(o *nodeOptions) {
		o.onError = fn
	}
}

func applyOptions(opts []Option) nodeOptions {
	var o nodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.rt == nil {
		o.rt = Default()
	}
	return o
}
