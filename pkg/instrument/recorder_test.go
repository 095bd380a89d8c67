package instrument

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/observe/pkg/observe"
)

func TestRecorderEntityTable(t *testing.T) {
	rec := NewRecorder()
	rt := observe.NewRuntime(observe.WithLogger(rec))

	name := observe.NewValue("name", "ada", observe.InRuntime(rt))
	upper := observe.Derive("upper", func(r *observe.Reader) string {
		return strings.ToUpper(name.Read(r))
	}, observe.InRuntime(rt))
	e := observe.Autorun("print", func(r *observe.Reader) error {
		_, err := upper.Read(r)
		return err
	}, observe.InRuntime(rt))
	defer e.Dispose()

	name.Set("grace", nil)

	got, ok := rec.Lookup("upper")
	if !ok {
		t.Fatal("expected entity for upper")
	}
	want := Entity{
		ID:        upper.ID(),
		Kind:      "derived",
		Label:     "upper",
		Observers: 1,
		Value:     `"GRACE"`,
		HasValue:  true,
		Updates:   2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entity mismatch (-want +got):\n%s", diff)
	}

	effect, _ := rec.Entity(e.ID())
	if effect.Runs != 2 {
		t.Errorf("expected 2 runs, got %d", effect.Runs)
	}

	summary := rec.Summary()
	if summary["value"] != 1 || summary["derived"] != 1 || summary["effect"] != 1 {
		t.Errorf("unexpected summary %v", summary)
	}
}

func TestRecorderEventLimit(t *testing.T) {
	rec := NewRecorder(WithEventLimit(3))
	rt := observe.NewRuntime(observe.WithLogger(rec))
	v := observe.NewValue("v", 0, observe.InRuntime(rt))
	for i := 1; i <= 5; i++ {
		v.Set(i, nil)
	}

	events := rec.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Type != EventTransactionEnd {
		t.Errorf("expected last event transaction-end, got %s", last.Type)
	}
	if events[0].Seq >= events[1].Seq {
		t.Errorf("expected increasing sequence numbers, got %d then %d", events[0].Seq, events[1].Seq)
	}
}

func TestRecorderSnapshotJSON(t *testing.T) {
	rec := NewRecorder()
	rt := observe.NewRuntime(observe.WithLogger(rec))
	observe.NewValue("v", []int{1, 2}, observe.InRuntime(rt)).Set([]int{3}, nil)

	data, err := json.Marshal(rec.Snapshot())
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(snap.Entities) != 1 || snap.Entities[0].Value != "[3]" {
		t.Errorf("unexpected snapshot entities %+v", snap.Entities)
	}
}

func TestRecorderWriteTable(t *testing.T) {
	rec := NewRecorder()
	rt := observe.NewRuntime(observe.WithLogger(rec))
	observe.NewValue("count", 1, observe.InRuntime(rt)).Set(2, nil)

	var buf bytes.Buffer
	if err := rec.WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "LABEL") || !strings.Contains(out, "count") {
		t.Errorf("unexpected table:\n%s", out)
	}
}
