package observe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValueGetSet(t *testing.T) {
	rt := NewRuntime()
	v := NewValue("v", 1, InRuntime(rt))

	if v.Get() != 1 {
		t.Errorf("expected 1, got %d", v.Get())
	}

	v.Set(2, nil)
	if v.Get() != 2 {
		t.Errorf("expected 2, got %d", v.Get())
	}

	v.Update(func(n int) int { return n * 10 }, nil)
	if v.Get() != 20 {
		t.Errorf("expected 20, got %d", v.Get())
	}
}

func TestValueSetEqualIsNoop(t *testing.T) {
	rt := NewRuntime()
	v := NewValue("v", "a", InRuntime(rt))

	var runs counter
	e := Autorun("watch", func(r *Reader) error {
		runs.inc()
		_ = v.Read(r)
		return nil
	}, InRuntime(rt))
	defer e.Dispose()

	before := v.version
	v.Set("a", nil)
	if v.version != before {
		t.Errorf("version moved on equal set: %d -> %d", before, v.version)
	}
	expectCount(t, "effect", &runs, 1)
}

func TestValueWithEquals(t *testing.T) {
	rt := NewRuntime()
	type point struct{ X, Y int }

	// Only X matters.
	v := NewValue("p", point{1, 1}, InRuntime(rt)).WithEquals(func(a, b point) bool {
		return a.X == b.X
	})

	v.Set(point{1, 5}, nil)
	if got := v.Get(); got.Y != 1 {
		t.Errorf("expected set with equal X to be ignored, got %+v", got)
	}

	v.Set(point{2, 5}, nil)
	if got := v.Get(); got != (point{2, 5}) {
		t.Errorf("expected {2 5}, got %+v", got)
	}
}

func TestValueComparerPanicPropagates(t *testing.T) {
	rt := NewRuntime()
	v := NewValue("v", 1, InRuntime(rt)).WithEquals(func(a, b int) bool {
		panic("boom")
	})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic from comparer")
		}
		if v.Get() != 1 {
			t.Errorf("value changed despite comparer panic: %d", v.Get())
		}
		if rt.Current() != nil {
			t.Error("transaction left open")
		}
	}()
	v.Set(2, nil)
}

func TestValueDefaultEqualsPointerIdentity(t *testing.T) {
	type obj struct{ n int }
	a := &obj{1}
	b := &obj{1}

	if !DefaultEquals(a, a) {
		t.Error("same pointer should be equal")
	}
	if DefaultEquals(a, b) {
		t.Error("different pointers with equal contents should differ")
	}
	if !DefaultEquals([]int{1, 2}, []int{1, 2}) {
		t.Error("equal slices should be equal")
	}
	if DefaultEquals(map[string]int{"a": 1}, map[string]int{"a": 2}) {
		t.Error("different maps should differ")
	}
}

func TestValueInterfaceChangesDynamicType(t *testing.T) {
	rt := NewRuntime()
	v := NewValue[any]("v", 1, InRuntime(rt))

	var seen []any
	e := Autorun("watch", func(r *Reader) error {
		seen = append(seen, v.Read(r))
		return nil
	}, InRuntime(rt))
	defer e.Dispose()

	v.Set("hello", nil)
	v.Set(nil, nil)
	v.Set(nil, nil)
	v.Set(2.5, nil)

	want := []any{1, "hello", nil, 2.5}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("effect runs mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultEqualsMixedDynamicTypes(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{1, 1, true},
		{1, "1", false},
		{"a", nil, false},
		{nil, nil, true},
		{int64(1), 1, false},
		{true, 1, false},
		{&struct{}{}, []int{1}, false},
	}
	for _, tt := range tests {
		if got := DefaultEquals(tt.a, tt.b); got != tt.want {
			t.Errorf("DefaultEquals(%#v, %#v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestValueObserverCount(t *testing.T) {
	log := &eventLogger{}
	rt := NewRuntime(WithLogger(log))
	v := NewValue("v", 0, InRuntime(rt))

	if v.ObserverCount() != 0 {
		t.Fatalf("expected 0 observers, got %d", v.ObserverCount())
	}

	e := Autorun("e", func(r *Reader) error {
		_ = v.Read(r)
		return nil
	}, InRuntime(rt))

	if v.ObserverCount() != 1 {
		t.Errorf("expected 1 observer, got %d", v.ObserverCount())
	}

	e.Dispose()
	if v.ObserverCount() != 0 {
		t.Errorf("expected 0 observers after dispose, got %d", v.ObserverCount())
	}

	got := log.only("observers v")
	want := []string{"observers v 1", "observers v 0"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("observer count events = %v, want %v", got, want)
	}
}

func TestSignalTrigger(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal("tick", InRuntime(rt))

	var runs counter
	e := Autorun("e", func(r *Reader) error {
		runs.inc()
		s.Read(r)
		return nil
	}, InRuntime(rt))
	defer e.Dispose()

	s.Trigger(nil)
	s.Trigger(nil)
	expectCount(t, "effect", &runs, 3)

	// Triggers inside one transaction collapse into one run.
	rt.Tx(func(tx *Transaction) {
		s.Trigger(tx)
		s.Trigger(tx)
	})
	expectCount(t, "effect", &runs, 4)
}
