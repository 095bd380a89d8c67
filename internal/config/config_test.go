package config

import (
	"bytes"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vango-dev/observe/internal/errors"
	"github.com/vango-dev/observe/pkg/instrument"
	"github.com/vango-dev/observe/pkg/observe"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error %v is not *errors.Error", err)
	}
	return e.Code
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Debug.FormatLimit != observe.DefaultFormatLimit {
		t.Errorf("Debug.FormatLimit = %d, want %d", cfg.Debug.FormatLimit, observe.DefaultFormatLimit)
	}
	if cfg.Debug.LogBudget == nil || !*cfg.Debug.LogBudget {
		t.Error("Debug.LogBudget should default to true")
	}
	if cfg.Budget.MaxPassesPerCommit != observe.DefaultMaxPassesPerCommit {
		t.Errorf("Budget.MaxPassesPerCommit = %d, want %d", cfg.Budget.MaxPassesPerCommit, observe.DefaultMaxPassesPerCommit)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if cfg.Trace.TracerName != DefaultTracerName {
		t.Errorf("Trace.TracerName = %q, want %q", cfg.Trace.TracerName, DefaultTracerName)
	}
	if cfg.Recorder.EventLimit != instrument.DefaultEventLimit {
		t.Errorf("Recorder.EventLimit = %d, want %d", cfg.Recorder.EventLimit, instrument.DefaultEventLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, YAMLFileName, `debug:
  formatLimit: 40
  logEffectRuns: true
  logBudget: false
budget:
  maxEffectRunsPerCommit: 500
log:
  level: debug
  format: json
metrics:
  namespace: demo
  subsystem: graph
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	falseVal := false
	want := &Config{
		Debug:    DebugConfig{FormatLimit: 40, LogEffectRuns: true, LogBudget: &falseVal},
		Budget:   BudgetConfig{MaxPassesPerCommit: observe.DefaultMaxPassesPerCommit, MaxEffectRunsPerCommit: 500},
		Log:      LogConfig{Level: "debug", Format: "json"},
		Metrics:  MetricsConfig{Namespace: "demo", Subsystem: "graph"},
		Trace:    TraceConfig{TracerName: DefaultTracerName},
		Recorder: RecorderConfig{EventLimit: instrument.DefaultEventLimit},
	}
	if diff := cmp.Diff(want, cfg, cmpopts.IgnoreUnexported(Config{})); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
	if cfg.Path() != filepath.Join(dir, YAMLFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, JSONFileName, `{
  "budget": {"maxPassesPerCommit": 7},
  "trace": {"recordValues": true}
}
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if cfg.Budget.MaxPassesPerCommit != 7 {
		t.Errorf("Budget.MaxPassesPerCommit = %d, want 7", cfg.Budget.MaxPassesPerCommit)
	}
	if !cfg.Trace.RecordValues {
		t.Error("Trace.RecordValues should be true")
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want default", cfg.Log.Level)
	}
}

func TestLoadPrefersYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, JSONFileName, `{"log": {"level": "error"}}`)
	writeFile(t, dir, YAMLFileName, "log:\n  level: warn\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode string
		wantLine int
	}{
		{
			name:     "invalid json",
			file:     "observe.json",
			content:  "{\n  \"debug\": {\n    \"formatLimit\": ,\n  }\n}\n",
			wantCode: "E101",
			wantLine: 3,
		},
		{
			name:     "wrong json type",
			file:     "observe.json",
			content:  "{\n  \"budget\": {\"maxPassesPerCommit\": \"many\"}\n}\n",
			wantCode: "E101",
			wantLine: 2,
		},
		{
			name:     "unknown json field",
			file:     "observe.json",
			content:  `{"colour": "blue"}`,
			wantCode: "E101",
		},
		{
			name:     "invalid yaml",
			file:     "observe.yaml",
			content:  "debug:\n  formatLimit: 10\n   logBudget: true\n",
			wantCode: "E102",
			wantLine: 3,
		},
		{
			name:     "wrong yaml type",
			file:     "observe.yaml",
			content:  "budget:\n  maxPassesPerCommit: many\n",
			wantCode: "E102",
			wantLine: 2,
		},
		{
			name:     "negative budget",
			file:     "observe.yaml",
			content:  "log:\n  level: info\nbudget:\n  maxPassesPerCommit: -1\n",
			wantCode: "E103",
			wantLine: 4,
		},
		{
			name:     "bad level",
			file:     "observe.yaml",
			content:  "log:\n  level: loud\n",
			wantCode: "E103",
			wantLine: 2,
		},
		{
			name:     "bad format in json",
			file:     "observe.json",
			content:  `{"log": {"format": "xml"}}`,
			wantCode: "E103",
		},
		{
			name:     "unsupported extension",
			file:     "observe.toml",
			content:  "",
			wantCode: "E104",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errorCode(t, err); got != tt.wantCode {
				t.Errorf("code = %s, want %s (%v)", got, tt.wantCode, err)
			}
			var e *errors.Error
			stderrors.As(err, &e)
			switch {
			case tt.wantLine == 0 && e.Location != nil:
				t.Errorf("Location = %v, want none", e.Location)
			case tt.wantLine > 0 && (e.Location == nil || e.Location.Line != tt.wantLine):
				t.Errorf("Location = %v, want line %d", e.Location, tt.wantLine)
			}
			if tt.wantCode == "E103" && e.Example == "" {
				t.Error("invalid value error should carry an example")
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil || errorCode(t, err) != "E100" {
		t.Errorf("Load(empty dir) = %v, want E100", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "nope.yaml")); err == nil || errorCode(t, err) != "E100" {
		t.Errorf("LoadFile(missing) = %v, want E100", err)
	}
	if Exists(dir) {
		t.Error("Exists(empty dir) = true")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"saved.yaml", "saved.json"} {
		t.Run(name, func(t *testing.T) {
			cfg := New()
			cfg.Budget.MaxEffectRunsPerCommit = 42
			cfg.Log.Level = "warn"

			path := filepath.Join(t.TempDir(), name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatal(err)
			}
			if cfg.Path() != path {
				t.Errorf("Path() = %q, want %q", cfg.Path(), path)
			}
			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(cfg, loaded, cmpopts.IgnoreUnexported(Config{})); diff != "" {
				t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
			}
		})
	}

	if err := New().SaveTo(filepath.Join(t.TempDir(), "observe.toml")); errorCode(t, err) != "E104" {
		t.Errorf("SaveTo(.toml) = %v, want E104", err)
	}
	if _, err := New().Marshal("toml"); errorCode(t, err) != "E104" {
		t.Errorf("Marshal(toml) = %v, want E104", err)
	}
}

func TestRuntimeOptions(t *testing.T) {
	cfg := New()
	cfg.Budget.MaxPassesPerCommit = 2

	rt := observe.NewRuntime(cfg.RuntimeOptions()...)
	v := observe.NewValue("v", 0, observe.InRuntime(rt))
	e := observe.Autorun("loop", func(r *observe.Reader) error {
		v.Set(v.Read(r)+1, nil)
		return nil
	}, observe.InRuntime(rt))
	defer e.Dispose()

	if rt.BudgetStats().Exceeded == 0 {
		t.Errorf("budget of 2 passes should be exceeded, runs = %d", e.Runs())
	}
}

func TestNewSlog(t *testing.T) {
	cfg := New()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	l := cfg.NewSlog(&buf)
	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON warn record, got %s", out)
	}
}

func TestInstrumentOptions(t *testing.T) {
	cfg := New()
	if n := len(cfg.SlogOptions()); n != 1 {
		t.Errorf("SlogOptions() = %d options", n)
	}
	if n := len(cfg.MetricsOptions()); n != 2 {
		t.Errorf("MetricsOptions() = %d options", n)
	}
	if n := len(cfg.TracerOptions()); n != 2 {
		t.Errorf("TracerOptions() = %d options", n)
	}
	if n := len(cfg.RecorderOptions()); n != 1 {
		t.Errorf("RecorderOptions() = %d options", n)
	}
}

func TestLineColumn(t *testing.T) {
	data := []byte("ab\ncd\nef")
	tests := []struct {
		offset    int
		line, col int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{7, 3, 2},
	}
	for _, tt := range tests {
		line, col := lineColumn(data, tt.offset)
		if line != tt.line || col != tt.col {
			t.Errorf("lineColumn(%d) = %d:%d, want %d:%d", tt.offset, line, col, tt.line, tt.col)
		}
	}
}
