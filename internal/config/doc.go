// Package config loads the configuration of the observe command.
//
// The configuration is stored in observe.yaml (or observe.json) and covers
// the engine's debug and budget settings plus the instrumentation loggers
// the CLI can attach.
//
// # Configuration File Structure
//
//	debug:
//	  formatLimit: 100
//	  logEffectRuns: false
//	  logBudget: true
//	budget:
//	  maxPassesPerCommit: 100
//	  maxEffectRunsPerCommit: 0
//	log:
//	  level: info
//	  format: text
//	metrics:
//	  namespace: observe
//	trace:
//	  tracerName: github.com/vango-dev/observe
//	  recordValues: false
//	recorder:
//	  eventLimit: 1000
//
// # Usage
//
//	cfg, err := config.LoadFile("observe.yaml")
//	if err != nil {
//	    return err
//	}
//	rt := observe.NewRuntime(cfg.RuntimeOptions()...)
//
// Validation errors of YAML files point at the line of the offending key.
package config
