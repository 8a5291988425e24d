package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "restaurant_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	LastSuccess     prometheus.Gauge

	// Stage metrics.
	StageDuration *prometheus.HistogramVec // labels: stage
	StageRuns     *prometheus.CounterVec   // labels: stage, outcome={success,error}
	RowsWritten   *prometheus.GaugeVec     // labels: table
	RowsDropped   *prometheus.CounterVec   // labels: table, reason

	// Fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: endpoint={search,details}, outcome={success,error,rate_limited}
	FetchCache    *prometheus.CounterVec   // labels: endpoint, result={hit,miss}
	FetchDuration *prometheus.HistogramVec // labels: endpoint

	// Sink metrics.
	RowsLoaded     *prometheus.CounterVec // labels: table
	ViewsPublished *prometheus.CounterVec // labels: view
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed every stage.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of a single stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{"stage"}),
		StageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Stage executions by outcome.",
		}, []string{"stage", "outcome"}),
		RowsWritten: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      "Rows in the most recently written staging table.",
		}, []string{"table"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Input records dropped while building a table.",
		}, []string{"table", "reason"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Yelp API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      "Raw document cache lookups by endpoint and result.",
		}, []string{"endpoint", "result"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Yelp API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows copied into the relational sink.",
		}, []string{"table"}),
		ViewsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_rows_published_total",
			Help:      "Derived view rows published to Kafka.",
		}, []string{"view"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.LastSuccess,
		m.StageDuration,
		m.StageRuns,
		m.RowsWritten,
		m.RowsDropped,
		m.FetchRequests,
		m.FetchCache,
		m.FetchDuration,
		m.RowsLoaded,
		m.ViewsPublished,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}

// WriteTextfile dumps the default registry in the node_exporter textfile
// format. Batch runs call it on exit so the last run stays scrapeable.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
