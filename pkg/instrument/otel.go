package instrument

import (
	"context"
	"fmt"
	"sync"

	"github.com/vango-dev/observe/pkg/observe"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for observe runtimes.
const defaultTracerName = "observe"

// TracerConfig configures the OpenTelemetry logger.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "observe").
	TracerName string

	// Provider is the tracer provider.
	// Default: the global provider from otel.GetTracerProvider.
	Provider trace.TracerProvider

	// Context is the parent of every transaction span.
	// Default: context.Background().
	Context context.Context

	// RecordValues adds formatted values to recompute and change events.
	// Values may contain sensitive data. Disabled by default.
	RecordValues bool
}

// TracerOption configures the OpenTelemetry logger.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(c *TracerConfig) {
		c.Provider = tp
	}
}

// WithParentContext sets the parent context of transaction spans.
func WithParentContext(ctx context.Context) TracerOption {
	return func(c *TracerConfig) {
		c.Context = ctx
	}
}

// WithRecordValues enables formatted values on span events.
func WithRecordValues(enabled bool) TracerOption {
	return func(c *TracerConfig) {
		c.RecordValues = enabled
	}
}

func defaultTracerConfig() TracerConfig {
	return TracerConfig{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
}

// Tracer is an observe.Logger that records every transaction as a span,
// with one child span per effect run. Value changes and recomputes become
// span events on the innermost open span.
//
// Use one Tracer per Runtime.
type Tracer struct {
	tracer trace.Tracer
	config TracerConfig

	mu sync.Mutex

	// txs are the open transaction spans, innermost last.
	txs []openSpan

	// effects are the running effect spans, innermost last. Effects nest
	// when one is created inside another's body.
	effects []openSpan
}

type openSpan struct {
	id   uint64
	ctx  context.Context
	span trace.Span
}

var _ observe.Logger = (*Tracer)(nil)

// NewTracer creates a Tracer.
//
// The tracer uses the global OpenTelemetry tracer provider unless one is
// given with WithTracerProvider. Configure it in main():
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func NewTracer(opts ...TracerOption) *Tracer {
	config := defaultTracerConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Context == nil {
		config.Context = context.Background()
	}

	t := &Tracer{config: config}
	if config.Provider != nil {
		t.tracer = config.Provider.Tracer(config.TracerName)
	} else {
		t.tracer = otel.Tracer(config.TracerName)
	}
	return t
}

func nodeAttrs(n observe.NodeInfo) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("observe.node.id", int64(n.ID)),
		attribute.String("observe.node.kind", n.Kind.String()),
		attribute.String("observe.node.label", n.Label),
	}
}

// innermost returns the span new events and effect spans attach to.
// Callers hold t.mu.
func (t *Tracer) innermost() (context.Context, trace.Span) {
	if n := len(t.effects); n > 0 {
		return t.effects[n-1].ctx, t.effects[n-1].span
	}
	if n := len(t.txs); n > 0 {
		return t.txs[n-1].ctx, t.txs[n-1].span
	}
	return t.config.Context, nil
}

func (t *Tracer) event(name string, attrs ...attribute.KeyValue) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, span := t.innermost(); span != nil {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

func (t *Tracer) NodeCreated(n observe.NodeInfo) {
	t.event("observe.node_created", nodeAttrs(n)...)
}

func (t *Tracer) ObserverCountChanged(observe.NodeInfo, int) {}

func (t *Tracer) ValueChanged(n observe.NodeInfo, c observe.Change) {
	attrs := nodeAttrs(n)
	if t.config.RecordValues {
		attrs = append(attrs,
			attribute.String("observe.old", c.Old),
			attribute.String("observe.new", c.New),
		)
	}
	t.event("observe.value_changed", attrs...)
}

func (t *Tracer) DerivedRecomputed(n observe.NodeInfo, c observe.Change) {
	attrs := append(nodeAttrs(n), attribute.Bool("observe.changed", c.DidChange))
	if t.config.RecordValues {
		attrs = append(attrs, attribute.String("observe.new", c.New))
	}
	t.event("observe.derived_recomputed", attrs...)
}

func (t *Tracer) DerivedCleared(n observe.NodeInfo) {
	t.event("observe.derived_cleared", nodeAttrs(n)...)
}

func (t *Tracer) EffectCreated(n observe.NodeInfo) {
	t.event("observe.effect_created", nodeAttrs(n)...)
}

func (t *Tracer) EffectRan(n observe.NodeInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	parent, _ := t.innermost()
	ctx, span := t.tracer.Start(parent, "observe.effect "+n.Label,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(nodeAttrs(n)...),
	)
	t.effects = append(t.effects, openSpan{id: n.ID, ctx: ctx, span: span})
}

func (t *Tracer) EffectFinished(n observe.NodeInfo, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.effects) - 1; i >= 0; i-- {
		if t.effects[i].id != n.ID {
			continue
		}
		span := t.effects[i].span
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		t.effects = append(t.effects[:i], t.effects[i+1:]...)
		return
	}
}

func (t *Tracer) TransactionBegin(tx observe.TxInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	parent, _ := t.innermost()
	name := "observe.transaction"
	if tx.Name != "" {
		name = fmt.Sprintf("observe.transaction %s", tx.Name)
	}
	ctx, span := t.tracer.Start(parent, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int64("observe.tx.id", int64(tx.ID))),
	)
	t.txs = append(t.txs, openSpan{id: tx.ID, ctx: ctx, span: span})
}

func (t *Tracer) TransactionEnd(tx observe.TxInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.txs) - 1; i >= 0; i-- {
		if t.txs[i].id != tx.ID {
			continue
		}
		span := t.txs[i].span
		span.SetAttributes(
			attribute.Int("observe.tx.passes", tx.Passes),
			attribute.Int("observe.tx.runs", tx.Runs),
			attribute.Int("observe.tx.dropped", tx.Dropped),
		)
		if tx.Dropped > 0 {
			span.SetStatus(codes.Error, observe.ErrBudgetExceeded.Error())
		}
		span.End()
		t.txs = append(t.txs[:i], t.txs[i+1:]...)
		return
	}
}
