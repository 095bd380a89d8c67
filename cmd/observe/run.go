package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vango-dev/observe/internal/config"
	"github.com/vango-dev/observe/internal/demo"
	"github.com/vango-dev/observe/internal/errors"
	"github.com/vango-dev/observe/pkg/instrument"
	"github.com/vango-dev/observe/pkg/observe"
)

type runOptions struct {
	steps      int
	configPath string
	log        bool
	metrics    bool
	trace      bool
	record     string
	timeout    time.Duration
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario",
		Long: `Run a scenario against a fresh runtime and print its output.

The runtime is configured from observe.yaml or observe.json in the
current directory, or from the file given with --config.

Examples:
  observe run diamond
  observe run basic --steps=10
  observe run contacts --log --record=table
  observe run async --metrics --trace`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return demo.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.steps, "steps", "n", 0, "Number of steps (default from the scenario)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default observe.yaml or observe.json)")
	cmd.Flags().BoolVar(&opts.log, "log", false, "Log engine events to stderr")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Print Prometheus metrics after the run")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print recorded OpenTelemetry spans after the run")
	cmd.Flags().StringVar(&opts.record, "record", "", "Print the recorded node table: table or json")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Abort the scenario after this long")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if config.Exists(".") {
		return config.Load(".")
	}
	return config.New(), nil
}

func runScenario(ctx context.Context, out, errOut io.Writer, name string, opts runOptions) error {
	if opts.steps < 0 {
		return errors.New("E140").WithDetail(fmt.Sprintf("--steps must not be negative, got %d", opts.steps))
	}
	if opts.record != "" && opts.record != "table" && opts.record != "json" {
		return errors.New("E140").
			WithDetail(fmt.Sprintf("--record %q is not a known format", opts.record)).
			WithSuggestion("Use --record=table or --record=json")
	}
	if _, err := demo.Lookup(name); err != nil {
		return err
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	slogger := cfg.NewSlog(errOut)

	var loggers []observe.Logger
	if opts.log {
		loggers = append(loggers, instrument.NewSlogLogger(slogger, cfg.SlogOptions()...))
	}

	var registry *prometheus.Registry
	if opts.metrics {
		registry = prometheus.NewRegistry()
		loggers = append(loggers, instrument.NewMetrics(append(cfg.MetricsOptions(), instrument.WithRegistry(registry))...))
	}

	var (
		exporter *tracetest.InMemoryExporter
		provider *sdktrace.TracerProvider
	)
	if opts.trace {
		exporter = tracetest.NewInMemoryExporter()
		provider = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		defer provider.Shutdown(context.Background())
		loggers = append(loggers, instrument.NewTracer(append(cfg.TracerOptions(), instrument.WithTracerProvider(provider))...))
	}

	var recorder *instrument.Recorder
	if opts.record != "" {
		recorder = instrument.NewRecorder(cfg.RecorderOptions()...)
		loggers = append(loggers, recorder)
	}

	rtOpts := append(cfg.RuntimeOptions(),
		observe.WithSlog(slogger),
		observe.WithLogger(instrument.Multi(loggers...)),
	)
	rt := observe.NewRuntime(rtOpts...)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	start := time.Now()
	if err := demo.Run(ctx, name, demo.Env{Runtime: rt, Out: out, Steps: opts.steps}); err != nil {
		return err
	}
	success(errOut, "%s finished in %s", name, time.Since(start).Round(time.Microsecond))
	if stats := rt.BudgetStats(); stats.Exceeded > 0 {
		warn(errOut, "commit budget exceeded %d time(s), %d effect run(s) dropped", stats.Exceeded, stats.Dropped)
	}

	if registry != nil {
		if err := writeMetrics(out, registry); err != nil {
			return err
		}
	}
	if exporter != nil {
		writeSpans(out, exporter.GetSpans())
	}
	if recorder != nil {
		if err := writeRecord(out, recorder, opts.record); err != nil {
			return err
		}
	}
	return nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.New("E141").Wrap(err)
	}
	fmt.Fprintln(w)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.New("E141").Wrap(err)
		}
	}
	return nil
}

func writeSpans(w io.Writer, spans tracetest.SpanStubs) {
	fmt.Fprintln(w)
	info(w, "%d span(s)", len(spans))
	for _, s := range spans {
		status := s.Status.Code.String()
		if s.Status.Description != "" {
			status += ": " + s.Status.Description
		}
		info(w, "%-40s events=%-3d %s", s.Name, len(s.Events), status)
	}
}

func writeRecord(w io.Writer, rec *instrument.Recorder, format string) error {
	fmt.Fprintln(w)
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec.Snapshot()); err != nil {
			return errors.New("E141").Wrap(err)
		}
		return nil
	}
	if err := rec.WriteTable(w); err != nil {
		return errors.New("E141").Wrap(err)
	}
	return nil
}
