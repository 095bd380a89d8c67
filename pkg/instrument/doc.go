// Package instrument provides observe.Logger implementations.
//
// SlogLogger writes one structured record per lifecycle event. Metrics
// exports Prometheus counters and histograms. Tracer records transactions
// and effect runs as OpenTelemetry spans. Recorder keeps an in-memory
// entity table and event log for inspection tools. Multi fans events out
// to several loggers:
//
//	rec := instrument.NewRecorder()
//	rt := observe.NewRuntime(observe.WithLogger(instrument.Multi(
//	    instrument.NewSlogLogger(slog.Default()),
//	    instrument.NewMetrics(instrument.WithRegistry(reg)),
//	    rec,
//	)))
package instrument
