package instrument

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/observe/pkg/observe"
)

// MetricsConfig configures the Prometheus metrics logger.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "observe").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for transaction duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics logger.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "observe",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is an observe.Logger that exports Prometheus metrics.
//
// Metrics collected:
//   - observe_nodes_created_total: Counter of nodes by kind
//   - observe_value_changes_total: Counter of leaf writes and signal triggers
//   - observe_derived_recomputes_total: Counter of recomputes by outcome
//   - observe_derived_cleared_total: Counter of dropped caches
//   - observe_effect_runs_total: Counter of effect runs
//   - observe_effect_errors_total: Counter of failed effect runs
//   - observe_transactions_total: Counter of committed transactions
//   - observe_transaction_duration_seconds: Histogram of commit durations
//   - observe_transaction_passes: Histogram of effect passes per commit
//   - observe_dropped_effect_runs_total: Counter of runs dropped by the commit budget
type Metrics struct {
	nodesCreated   *prometheus.CounterVec
	valueChanges   prometheus.Counter
	recomputes     *prometheus.CounterVec
	cleared        prometheus.Counter
	effectRuns     prometheus.Counter
	effectErrors   prometheus.Counter
	transactions   prometheus.Counter
	txDuration     prometheus.Histogram
	txPasses       prometheus.Histogram
	droppedEffects prometheus.Counter
}

var _ observe.Logger = (*Metrics)(nil)

// NewMetrics creates the metrics and registers them. Registering twice
// with the same registry panics, as with any promauto metric.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		nodesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "nodes_created_total",
			Help:        "Total number of reactive nodes created",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		valueChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "value_changes_total",
			Help:        "Total number of leaf value changes",
			ConstLabels: config.ConstLabels,
		}),

		recomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "derived_recomputes_total",
			Help:        "Total number of derived recomputes by whether the value changed",
			ConstLabels: config.ConstLabels,
		}, []string{"changed"}),

		cleared: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "derived_cleared_total",
			Help:        "Total number of derived caches dropped",
			ConstLabels: config.ConstLabels,
		}),

		effectRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect runs",
			ConstLabels: config.ConstLabels,
		}),

		effectErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_errors_total",
			Help:        "Total number of effect runs that returned an error",
			ConstLabels: config.ConstLabels,
		}),

		transactions: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transactions_total",
			Help:        "Total number of committed transactions",
			ConstLabels: config.ConstLabels,
		}),

		txDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transaction_duration_seconds",
			Help:        "Transaction duration from begin to the end of its commit",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		txPasses: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transaction_passes",
			Help:        "Effect passes per committed transaction",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}),

		droppedEffects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dropped_effect_runs_total",
			Help:        "Total number of queued effect runs dropped by the commit budget",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) NodeCreated(n observe.NodeInfo) {
	m.nodesCreated.WithLabelValues(n.Kind.String()).Inc()
}

func (m *Metrics) ObserverCountChanged(observe.NodeInfo, int) {}

func (m *Metrics) ValueChanged(observe.NodeInfo, observe.Change) {
	m.valueChanges.Inc()
}

func (m *Metrics) DerivedRecomputed(_ observe.NodeInfo, c observe.Change) {
	changed := "false"
	if c.DidChange {
		changed = "true"
	}
	m.recomputes.WithLabelValues(changed).Inc()
}

func (m *Metrics) DerivedCleared(observe.NodeInfo) {
	m.cleared.Inc()
}

func (m *Metrics) EffectCreated(n observe.NodeInfo) {
	m.nodesCreated.WithLabelValues(n.Kind.String()).Inc()
}

func (m *Metrics) EffectRan(observe.NodeInfo) {
	m.effectRuns.Inc()
}

func (m *Metrics) EffectFinished(_ observe.NodeInfo, err error) {
	if err != nil {
		m.effectErrors.Inc()
	}
}

func (m *Metrics) TransactionBegin(observe.TxInfo) {}

func (m *Metrics) TransactionEnd(tx observe.TxInfo) {
	m.transactions.Inc()
	m.txDuration.Observe(tx.Duration.Seconds())
	m.txPasses.Observe(float64(tx.Passes))
	if tx.Dropped > 0 {
		m.droppedEffects.Add(float64(tx.Dropped))
	}
}
