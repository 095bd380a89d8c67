package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/observe/internal/errors"
	"github.com/vango-dev/observe/pkg/instrument"
	"github.com/vango-dev/observe/pkg/observe"
)

const (
	// YAMLFileName is the preferred name of the configuration file.
	YAMLFileName = "observe.yaml"

	// JSONFileName is the JSON alternative to YAMLFileName.
	JSONFileName = "observe.json"

	// DefaultLogLevel is the default level of the CLI's slog logger.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default slog handler.
	DefaultLogFormat = "text"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "observe"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "github.com/vango-dev/observe"
)

// fileNames lists the names Load looks for, in order.
var fileNames = []string{YAMLFileName, "observe.yml", JSONFileName}

// Config represents the complete observe.yaml configuration.
type Config struct {
	// Debug contains engine debugging settings.
	Debug DebugConfig `json:"debug" yaml:"debug"`

	// Budget limits the work of a single commit.
	Budget BudgetConfig `json:"budget" yaml:"budget"`

	// Log configures the CLI's slog logger.
	Log LogConfig `json:"log" yaml:"log"`

	// Metrics configures the Prometheus instrumentation logger.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Trace configures the OpenTelemetry instrumentation logger.
	Trace TraceConfig `json:"trace" yaml:"trace"`

	// Recorder configures the devtools recorder.
	Recorder RecorderConfig `json:"recorder" yaml:"recorder"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// root is the parsed YAML document, used to point validation errors at
	// the offending line.
	root *yaml.Node
}

// DebugConfig mirrors observe.DebugConfig.
type DebugConfig struct {
	// FormatLimit caps formatted values handed to loggers.
	FormatLimit int `json:"formatLimit,omitempty" yaml:"formatLimit,omitempty"`

	// LogEffectRuns logs every effect run at debug level.
	LogEffectRuns bool `json:"logEffectRuns,omitempty" yaml:"logEffectRuns,omitempty"`

	// LogBudget logs a warning when the commit budget is exceeded.
	// Nil means true.
	LogBudget *bool `json:"logBudget,omitempty" yaml:"logBudget,omitempty"`
}

// BudgetConfig mirrors observe.BudgetConfig.
type BudgetConfig struct {
	MaxPassesPerCommit     int `json:"maxPassesPerCommit,omitempty" yaml:"maxPassesPerCommit,omitempty"`
	MaxEffectRunsPerCommit int `json:"maxEffectRunsPerCommit,omitempty" yaml:"maxEffectRunsPerCommit,omitempty"`
}

// LogConfig contains slog settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// ObserverCounts also logs observer count changes.
	ObserverCounts bool `json:"observerCounts,omitempty" yaml:"observerCounts,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Subsystem string `json:"subsystem,omitempty" yaml:"subsystem,omitempty"`
}

// TraceConfig contains OpenTelemetry settings.
type TraceConfig struct {
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`

	// RecordValues attaches formatted values to span events.
	RecordValues bool `json:"recordValues,omitempty" yaml:"recordValues,omitempty"`
}

// RecorderConfig contains devtools recorder settings.
type RecorderConfig struct {
	// EventLimit caps the recorded event log. Zero means
	// instrument.DefaultEventLimit.
	EventLimit int `json:"eventLimit,omitempty" yaml:"eventLimit,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory. It looks for
// observe.yaml, observe.yml and observe.json, in that order.
func Load(dir string) (*Config, error) {
	path, ok := Find(dir)
	if !ok {
		return nil, errors.New("E100").
			WithDetail("No " + YAMLFileName + " or " + JSONFileName + " found in " + dir).
			WithSuggestion("Run without --config to use the defaults")
	}
	return LoadFile(path)
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No config file at " + path).
				WithSuggestion("Check the path given with --config")
		}
		return nil, errors.New("E100").Wrap(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := decodeJSON(data, cfg); err != nil {
			return nil, jsonError(path, data, err)
		}
	case ".yaml", ".yml":
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, errors.New("E102").
				WithLocationFromError(path, err).
				Wrap(err).
				WithSuggestion("Check the indentation around the reported line")
		}
		if err := root.Decode(cfg); err != nil {
			return nil, errors.New("E102").
				WithLocationFromError(path, err).
				Wrap(err)
		}
		cfg.root = &root
	default:
		return nil, errors.New("E104").
			WithDetail("Cannot load " + path + ": configuration files must end in .json, .yaml or .yml")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeJSON(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// jsonError points a JSON decoding error at the line and column of its
// byte offset, when the decoder reports one.
func jsonError(path string, data []byte, err error) error {
	e := errors.New("E101").Wrap(err).
		WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")

	var offset int64 = -1
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case stderrors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 || offset > int64(len(data)) {
		return e
	}
	line, col := lineColumn(data, int(offset))
	return e.WithLocation(path, line, col)
}

// lineColumn converts a byte offset to a 1-based line and column.
func lineColumn(data []byte, offset int) (int, int) {
	before := data[:offset]
	line := bytes.Count(before, []byte{'\n'}) + 1
	col := offset - bytes.LastIndexByte(before, '\n')
	return line, col
}

// Marshal encodes the configuration as "yaml" or "json".
func (c *Config) Marshal(format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, errors.New("E141").Wrap(err)
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		data, err := yaml.Marshal(c)
		if err != nil {
			return nil, errors.New("E141").Wrap(err)
		}
		return data, nil
	}
	return nil, errors.New("E104").
		WithDetail(fmt.Sprintf("Unknown config format %q: use yaml or json", format))
}

// SaveTo writes the configuration to path, as JSON or YAML by extension,
// and remembers path as the configuration's location.
func (c *Config) SaveTo(path string) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext != "json" && ext != "yaml" && ext != "yml" {
		return errors.New("E104").
			WithDetail("Cannot save to " + path + ": configuration files must end in .json, .yaml or .yml")
	}
	data, err := c.Marshal(ext)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E141").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from or saved to. It is
// empty for a default config.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Debug.FormatLimit == 0 {
		c.Debug.FormatLimit = observe.DefaultFormatLimit
	}
	if c.Debug.LogBudget == nil {
		enabled := true
		c.Debug.LogBudget = &enabled
	}
	if c.Budget.MaxPassesPerCommit == 0 {
		c.Budget.MaxPassesPerCommit = observe.DefaultMaxPassesPerCommit
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Trace.TracerName == "" {
		c.Trace.TracerName = DefaultTracerName
	}
	if c.Recorder.EventLimit == 0 {
		c.Recorder.EventLimit = instrument.DefaultEventLimit
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	type check struct {
		bad     bool
		path    []string
		detail  string
		example string
	}
	checks := []check{
		{c.Debug.FormatLimit < 0, []string{"debug", "formatLimit"},
			"debug.formatLimit must not be negative",
			"debug:\n  formatLimit: 100"},
		{c.Budget.MaxPassesPerCommit < 0, []string{"budget", "maxPassesPerCommit"},
			"budget.maxPassesPerCommit must not be negative",
			"budget:\n  maxPassesPerCommit: 100"},
		{c.Budget.MaxEffectRunsPerCommit < 0, []string{"budget", "maxEffectRunsPerCommit"},
			"budget.maxEffectRunsPerCommit must not be negative",
			"budget:\n  maxEffectRunsPerCommit: 1000"},
		{!validLevel(c.Log.Level), []string{"log", "level"},
			fmt.Sprintf("log.level %q must be one of debug, info, warn, error", c.Log.Level),
			"log:\n  level: debug"},
		{c.Log.Format != "text" && c.Log.Format != "json", []string{"log", "format"},
			fmt.Sprintf("log.format %q must be text or json", c.Log.Format),
			"log:\n  format: json"},
		{c.Recorder.EventLimit < 0, []string{"recorder", "eventLimit"},
			"recorder.eventLimit must not be negative",
			"recorder:\n  eventLimit: 1000"},
	}
	for _, ch := range checks {
		if !ch.bad {
			continue
		}
		e := errors.New("E103").WithDetail(ch.detail).WithExample(ch.example)
		if line := c.line(ch.path...); line > 0 {
			e.WithLocation(c.configPath, line, 0)
		}
		return e
	}
	return nil
}

// line returns the line of the YAML key at path, or 0 when the config was
// not loaded from YAML or the key is absent.
func (c *Config) line(path ...string) int {
	if c.root == nil {
		return 0
	}
	n := c.root
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	line := 0
	for _, key := range path {
		if n.Kind != yaml.MappingNode {
			return 0
		}
		var next *yaml.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				line = n.Content[i].Line
				next = n.Content[i+1]
				break
			}
		}
		if next == nil {
			return 0
		}
		n = next
	}
	return line
}

func validLevel(s string) bool {
	var l slog.Level
	return l.UnmarshalText([]byte(s)) == nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NewSlog builds the CLI's slog logger writing to w.
func (c *Config) NewSlog(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// RuntimeOptions converts the configuration to engine options.
func (c *Config) RuntimeOptions() []observe.RuntimeOption {
	debug := observe.DefaultDebugConfig()
	debug.FormatLimit = c.Debug.FormatLimit
	debug.LogEffectRuns = c.Debug.LogEffectRuns
	if c.Debug.LogBudget != nil {
		debug.LogBudget = *c.Debug.LogBudget
	}
	return []observe.RuntimeOption{
		observe.WithDebug(debug),
		observe.WithBudget(observe.BudgetConfig{
			MaxPassesPerCommit:     c.Budget.MaxPassesPerCommit,
			MaxEffectRunsPerCommit: c.Budget.MaxEffectRunsPerCommit,
		}),
	}
}

// SlogOptions converts the configuration to options of the slog
// instrumentation logger.
func (c *Config) SlogOptions() []instrument.SlogOption {
	return []instrument.SlogOption{
		instrument.WithObserverCounts(c.Log.ObserverCounts),
	}
}

// MetricsOptions converts the configuration to Prometheus logger options.
func (c *Config) MetricsOptions() []instrument.MetricsOption {
	return []instrument.MetricsOption{
		instrument.WithNamespace(c.Metrics.Namespace),
		instrument.WithSubsystem(c.Metrics.Subsystem),
	}
}

// TracerOptions converts the configuration to tracer options.
func (c *Config) TracerOptions() []instrument.TracerOption {
	return []instrument.TracerOption{
		instrument.WithTracerName(c.Trace.TracerName),
		instrument.WithRecordValues(c.Trace.RecordValues),
	}
}

// RecorderOptions converts the configuration to recorder options.
func (c *Config) RecorderOptions() []instrument.RecorderOption {
	return []instrument.RecorderOption{
		instrument.WithEventLimit(c.Recorder.EventLimit),
	}
}

// Find returns the first configuration file present in dir.
func Find(dir string) (string, bool) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, ok := Find(dir)
	return ok
}
