package instrument

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/vango-dev/observe/pkg/observe"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricHistogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsCountsLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))
	rt := observe.NewRuntime(observe.WithLogger(m))

	n := observe.NewValue("n", 1, observe.InRuntime(rt))
	parity := observe.Derive("parity", func(r *observe.Reader) int {
		return n.Read(r) % 2
	}, observe.InRuntime(rt))
	e := observe.Autorun("print", func(r *observe.Reader) error {
		if v, _ := parity.Read(r); v == 0 {
			return errors.New("even")
		}
		return nil
	}, observe.InRuntime(rt), observe.OnError(func(error) {}))
	defer e.Dispose()

	n.Set(3, nil) // parity unchanged, effect skipped
	n.Set(4, nil) // parity changed, effect fails

	if got := metricCounterValue(t, m.nodesCreated.WithLabelValues("value")); got != 1 {
		t.Errorf("expected 1 value node, got %v", got)
	}
	if got := metricCounterValue(t, m.nodesCreated.WithLabelValues("effect")); got != 1 {
		t.Errorf("expected 1 effect node, got %v", got)
	}
	if got := metricCounterValue(t, m.valueChanges); got != 2 {
		t.Errorf("expected 2 value changes, got %v", got)
	}
	if got := metricCounterValue(t, m.recomputes.WithLabelValues("false")); got != 1 {
		t.Errorf("expected 1 unchanged recompute, got %v", got)
	}
	if got := metricCounterValue(t, m.recomputes.WithLabelValues("true")); got != 2 {
		t.Errorf("expected 2 changed recomputes, got %v", got)
	}
	if got := metricCounterValue(t, m.effectRuns); got != 2 {
		t.Errorf("expected 2 effect runs, got %v", got)
	}
	if got := metricCounterValue(t, m.effectErrors); got != 1 {
		t.Errorf("expected 1 effect error, got %v", got)
	}
	// Creation of the effect plus two writes.
	if got := metricCounterValue(t, m.transactions); got != 3 {
		t.Errorf("expected 3 transactions, got %v", got)
	}
	if got := metricHistogramCount(t, m.txDuration); got != 3 {
		t.Errorf("expected 3 duration samples, got %v", got)
	}
}

func TestMetricsRegistersWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	m.TransactionEnd(observe.TxInfo{Passes: 1})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "observe_transactions_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected observe_transactions_total to be registered")
	}
}

func TestMetricsDroppedRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	m.TransactionEnd(observe.TxInfo{Passes: 100, Dropped: 3})

	if got := metricCounterValue(t, m.droppedEffects); got != 3 {
		t.Errorf("expected 3 dropped runs, got %v", got)
	}
}
