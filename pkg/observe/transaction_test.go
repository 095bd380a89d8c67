package observe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTransactionNesting(t *testing.T) {
	rt := NewRuntime()
	n := NewValue("n", 0, InRuntime(rt))

	var seen []int
	e := Autorun("e", func(r *Reader) error {
		seen = append(seen, n.Read(r))
		return nil
	}, InRuntime(rt))
	defer e.Dispose()

	rt.TxNamed("outer", func(outer *Transaction) {
		n.Set(1, outer)
		rt.TxNamed("inner", func(inner *Transaction) {
			if inner != outer {
				t.Error("nested transaction should join the outer one")
			}
			n.Set(2, inner)
		})
		// Nothing runs until the outermost transaction ends.
		if len(seen) != 1 {
			t.Errorf("effect ran before outer transaction ended: %v", seen)
		}
		n.Set(3, nil)
	})

	if diff := cmp.Diff([]int{0, 3}, seen); diff != "" {
		t.Errorf("observations mismatch (-want +got):\n%s", diff)
	}
}

func TestTransactionBeginEnd(t *testing.T) {
	rt := NewRuntime()
	n := NewValue("n", 0, InRuntime(rt))

	var runs counter
	e := Autorun("e", func(r *Reader) error {
		runs.inc()
		_ = n.Read(r)
		return nil
	}, InRuntime(rt))
	defer e.Dispose()

	tx := rt.Begin("manual")
	if rt.Current() != tx {
		t.Fatal("expected Begin to open the current transaction")
	}
	n.Set(1, tx)
	n.Set(2, nil)
	expectCount(t, "e", &runs, 1)

	tx.End()
	expectCount(t, "e", &runs, 2)
	if !tx.Done() {
		t.Error("expected transaction done")
	}

	// End after commit is a no-op.
	tx.End()
	if rt.Current() != nil {
		t.Error("expected no open transaction")
	}
}

func TestTransactionPanicStillCommits(t *testing.T) {
	rt := NewRuntime()
	n := NewValue("n", 0, InRuntime(rt))

	var runs counter
	e := Autorun("e", func(r *Reader) error {
		runs.inc()
		_ = n.Read(r)
		return nil
	}, InRuntime(rt))
	defer e.Dispose()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		rt.Tx(func(tx *Transaction) {
			n.Set(1, tx)
			panic("abort")
		})
	}()

	if rt.Current() != nil {
		t.Error("transaction left open after panic")
	}
	expectCount(t, "e", &runs, 2)
}

func TestSubtransaction(t *testing.T) {
	rt := NewRuntime()
	n := NewValue("n", 0, InRuntime(rt))

	var runs counter
	e := Autorun("e", func(r *Reader) error {
		runs.inc()
		_ = n.Read(r)
		return nil
	}, InRuntime(rt))
	defer e.Dispose()

	rt.Tx(func(tx *Transaction) {
		Subtransaction(tx, func(sub *Transaction) {
			n.Set(1, sub)
		})
		expectCount(t, "e", &runs, 1)
	})
	expectCount(t, "e", &runs, 2)

	// A nil transaction starts its own.
	Subtransaction(nil, func(tx *Transaction) {
		if tx == nil || tx.Runtime() != Default() {
			t.Error("expected a transaction of the default runtime")
		}
	})
}

func TestTransactionLoggerEvents(t *testing.T) {
	log := &eventLogger{}
	rt := NewRuntime(WithLogger(log))
	a := NewValue("a", 1, InRuntime(rt))
	b := NewValue("b", 2, InRuntime(rt))
	sum := Derive("sum", func(r *Reader) int {
		return a.Read(r) + b.Read(r)
	}, InRuntime(rt))
	e := Autorun("print", func(r *Reader) error {
		_, err := sum.Read(r)
		return err
	}, InRuntime(rt))
	defer e.Dispose()

	log.reset()
	rt.TxNamed("update", func(tx *Transaction) {
		a.Set(10, tx)
		b.Set(20, tx)
	})

	want := []string{
		"begin update",
		"set a 1 -> 10",
		"set b 2 -> 20",
		"recomputed sum 3 -> 30 changed=true",
		"run print",
		"end update",
	}
	if diff := cmp.Diff(want, log.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestTxInfo(t *testing.T) {
	rt := NewRuntime()
	n := NewValue("n", 0, InRuntime(rt))
	e := Autorun("e", func(r *Reader) error {
		_ = n.Read(r)
		return nil
	}, InRuntime(rt))
	defer e.Dispose()

	tx := rt.Begin("info")
	n.Set(1, tx)
	tx.End()

	info := tx.Info()
	if info.Name != "info" || info.Passes != 1 || info.Runs != 1 {
		t.Errorf("unexpected tx info %+v", info)
	}
}
