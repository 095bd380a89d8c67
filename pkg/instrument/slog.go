package instrument

import (
	"context"
	"log/slog"

	"github.com/vango-dev/observe/pkg/observe"
)

// SlogConfig configures a SlogLogger.
type SlogConfig struct {
	// Level is the level of lifecycle records.
	// Default: slog.LevelDebug.
	Level slog.Level

	// ErrorLevel is the level of records for failed effect runs.
	// Default: slog.LevelWarn.
	ErrorLevel slog.Level

	// ObserverCounts enables records for observer count changes, which
	// are by far the most frequent event.
	// Default: false.
	ObserverCounts bool
}

// SlogOption configures a SlogLogger.
type SlogOption func(*SlogConfig)

// WithLevel sets the level of lifecycle records.
func WithLevel(level slog.Level) SlogOption {
	return func(c *SlogConfig) {
		c.Level = level
	}
}

// WithErrorLevel sets the level of records for failed effect runs.
func WithErrorLevel(level slog.Level) SlogOption {
	return func(c *SlogConfig) {
		c.ErrorLevel = level
	}
}

// WithObserverCounts enables records for observer count changes.
func WithObserverCounts(enabled bool) SlogOption {
	return func(c *SlogConfig) {
		c.ObserverCounts = enabled
	}
}

func defaultSlogConfig() SlogConfig {
	return SlogConfig{
		Level:      slog.LevelDebug,
		ErrorLevel: slog.LevelWarn,
	}
}

// SlogLogger writes observe lifecycle events to a *slog.Logger.
type SlogLogger struct {
	log    *slog.Logger
	config SlogConfig
}

var _ observe.Logger = (*SlogLogger)(nil)

// NewSlogLogger creates a SlogLogger. A nil logger means slog.Default().
func NewSlogLogger(l *slog.Logger, opts ...SlogOption) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	config := defaultSlogConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &SlogLogger{log: l, config: config}
}

func nodeAttr(n observe.NodeInfo) slog.Attr {
	return slog.Group("node",
		slog.Uint64("id", n.ID),
		slog.String("kind", n.Kind.String()),
		slog.String("label", n.Label),
	)
}

func (s *SlogLogger) emit(level slog.Level, msg string, attrs ...slog.Attr) {
	s.log.LogAttrs(context.Background(), level, msg, attrs...)
}

func (s *SlogLogger) NodeCreated(n observe.NodeInfo) {
	s.emit(s.config.Level, "node created", nodeAttr(n))
}

func (s *SlogLogger) ObserverCountChanged(n observe.NodeInfo, count int) {
	if !s.config.ObserverCounts {
		return
	}
	s.emit(s.config.Level, "observers changed", nodeAttr(n), slog.Int("count", count))
}

func (s *SlogLogger) ValueChanged(n observe.NodeInfo, c observe.Change) {
	s.emit(s.config.Level, "value changed", nodeAttr(n),
		slog.String("old", c.Old),
		slog.String("new", c.New),
	)
}

func (s *SlogLogger) DerivedRecomputed(n observe.NodeInfo, c observe.Change) {
	attrs := []slog.Attr{nodeAttr(n), slog.Bool("changed", c.DidChange)}
	if c.HadValue {
		attrs = append(attrs, slog.String("old", c.Old))
	}
	attrs = append(attrs, slog.String("new", c.New))
	s.emit(s.config.Level, "derived recomputed", attrs...)
}

func (s *SlogLogger) DerivedCleared(n observe.NodeInfo) {
	s.emit(s.config.Level, "derived cleared", nodeAttr(n))
}

func (s *SlogLogger) EffectCreated(n observe.NodeInfo) {
	s.emit(s.config.Level, "effect created", nodeAttr(n))
}

func (s *SlogLogger) EffectRan(n observe.NodeInfo) {
	s.emit(s.config.Level, "effect run", nodeAttr(n))
}

func (s *SlogLogger) EffectFinished(n observe.NodeInfo, err error) {
	if err != nil {
		s.emit(s.config.ErrorLevel, "effect failed", nodeAttr(n), slog.Any("error", err))
	}
}

func (s *SlogLogger) TransactionBegin(tx observe.TxInfo) {
	s.emit(s.config.Level, "transaction begin",
		slog.Uint64("tx", tx.ID),
		slog.String("name", tx.Name),
	)
}

func (s *SlogLogger) TransactionEnd(tx observe.TxInfo) {
	attrs := []slog.Attr{
		slog.Uint64("tx", tx.ID),
		slog.String("name", tx.Name),
		slog.Int("passes", tx.Passes),
		slog.Int("runs", tx.Runs),
		slog.Duration("duration", tx.Duration),
	}
	if tx.Dropped > 0 {
		attrs = append(attrs, slog.Int("dropped", tx.Dropped))
	}
	s.emit(s.config.Level, "transaction end", attrs...)
}
