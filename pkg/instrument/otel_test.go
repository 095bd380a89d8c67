package instrument

import (
	"context"
	"errors"
	"testing"

	"github.com/vango-dev/observe/pkg/observe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T, opts ...TracerOption) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewTracer(append([]TracerOption{WithTracerProvider(tp)}, opts...)...), sr
}

func TestTracerSpansPerTransactionAndEffect(t *testing.T) {
	tracer, sr := newTestTracer(t)
	rt := observe.NewRuntime(observe.WithLogger(tracer))

	n := observe.NewValue("n", 1, observe.InRuntime(rt))
	e := observe.Autorun("watch", func(r *observe.Reader) error {
		_ = n.Read(r)
		return nil
	}, observe.InRuntime(rt))
	defer e.Dispose()

	rt.TxNamed("bump", func(tx *observe.Transaction) {
		n.Set(2, tx)
	})

	spans := sr.Ended()
	// Creation: tx + effect. Bump: tx + effect.
	if len(spans) != 4 {
		t.Fatalf("expected 4 spans, got %d", len(spans))
	}

	var txSpan, effectSpan sdktrace.ReadOnlySpan
	for _, s := range spans {
		switch s.Name() {
		case "observe.transaction bump":
			txSpan = s
		case "observe.effect watch":
			effectSpan = s
		}
	}
	if txSpan == nil || effectSpan == nil {
		t.Fatalf("missing spans, got %v", spanNames(spans))
	}
	// Both loops keep the last match, which belongs to the bump transaction.
	if effectSpan.Parent().SpanID() != txSpan.SpanContext().SpanID() {
		t.Errorf("expected effect span to be a child of the transaction span")
	}

	if !hasAttr(txSpan.Attributes(), "observe.tx.runs", 1) {
		t.Errorf("expected runs=1 on transaction span, got %v", txSpan.Attributes())
	}

	var sawChange bool
	for _, ev := range txSpan.Events() {
		if ev.Name == "observe.value_changed" {
			sawChange = true
		}
	}
	if !sawChange {
		t.Error("expected value change event on the transaction span")
	}
}

func TestTracerRecordsEffectError(t *testing.T) {
	tracer, sr := newTestTracer(t)
	rt := observe.NewRuntime(observe.WithLogger(tracer))

	e := observe.Autorun("broken", func(r *observe.Reader) error {
		return errors.New("nope")
	}, observe.InRuntime(rt), observe.OnError(func(error) {}))
	defer e.Dispose()

	for _, s := range sr.Ended() {
		if s.Name() != "observe.effect broken" {
			continue
		}
		if s.Status().Code != codes.Error || s.Status().Description != "nope" {
			t.Errorf("expected error status, got %+v", s.Status())
		}
		return
	}
	t.Error("effect span not found")
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	return names
}

func hasAttr(attrs []attribute.KeyValue, key string, want int64) bool {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsInt64() == want
		}
	}
	return false
}
