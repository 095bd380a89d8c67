package instrument

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/vango-dev/observe/pkg/observe"
)

func decodeRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad record %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestSlogLoggerRecords(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rt := observe.NewRuntime(observe.WithLogger(NewSlogLogger(l)))

	v := observe.NewValue("v", 1, observe.InRuntime(rt))
	v.Set(2, nil)

	recs := decodeRecords(t, &buf)
	var msgs []string
	for _, r := range recs {
		msgs = append(msgs, r["msg"].(string))
	}
	want := []string{"node created", "transaction begin", "value changed", "transaction end"}
	if strings.Join(msgs, ",") != strings.Join(want, ",") {
		t.Fatalf("messages = %v, want %v", msgs, want)
	}

	changed := recs[2]
	if changed["old"] != "1" || changed["new"] != "2" {
		t.Errorf("unexpected value change record %v", changed)
	}
	node, _ := changed["node"].(map[string]any)
	if node["label"] != "v" || node["kind"] != "value" {
		t.Errorf("unexpected node group %v", node)
	}
}

func TestSlogLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger := NewSlogLogger(l)

	// Lifecycle records default to debug and are filtered out.
	logger.NodeCreated(observe.NodeInfo{ID: 1, Kind: observe.KindValue, Label: "x"})
	logger.EffectFinished(observe.NodeInfo{ID: 2, Kind: observe.KindEffect, Label: "e"}, errors.New("bad"))

	recs := decodeRecords(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("expected only the failure record, got %v", recs)
	}
	if recs[0]["level"] != "WARN" || recs[0]["msg"] != "effect failed" {
		t.Errorf("unexpected record %v", recs[0])
	}
}

func TestSlogLoggerObserverCounts(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n := observe.NodeInfo{ID: 1, Kind: observe.KindValue, Label: "x"}

	NewSlogLogger(l).ObserverCountChanged(n, 1)
	if buf.Len() != 0 {
		t.Errorf("expected observer counts off by default, got %s", buf.String())
	}

	NewSlogLogger(l, WithObserverCounts(true), WithLevel(slog.LevelInfo)).ObserverCountChanged(n, 1)
	recs := decodeRecords(t, &buf)
	if len(recs) != 1 || recs[0]["count"] != float64(1) {
		t.Errorf("unexpected records %v", recs)
	}
}
