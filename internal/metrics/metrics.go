// Package metrics records Prometheus metrics for upload runs. A CLI run has
// no scrape endpoint, so the metrics are written in the node exporter
// textfile collector format once the run ends.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/bomsync"
	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/upload"
)

// Metrics exposes Prometheus collectors for upload runs. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	parts       *prometheus.CounterVec
	attempts    prometheus.Histogram
	batches     prometheus.Counter
	transitions *prometheus.CounterVec
	catalogs    *prometheus.GaugeVec
}

// New registers the run metrics against registerer. When registerer is nil
// the default Prometheus registerer is used.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bomsync_runs_total",
			Help: "Upload runs partitioned by terminal state.",
		}, []string{"state"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bomsync_run_duration_seconds",
			Help:    "Duration in seconds of upload runs.",
			Buckets: prometheus.DefBuckets,
		}),
		parts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bomsync_parts_total",
			Help: "Part lines reaching a terminal upload status, by status and error kind.",
		}, []string{"status", "error"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bomsync_part_attempts",
			Help:    "Submission attempts per part line.",
			Buckets: []float64{1, 2, 3, 5, 10},
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bomsync_batches_total",
			Help: "Completed upload batches.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bomsync_state_transitions_total",
			Help: "Run state transitions by target state.",
		}, []string{"state"}),
		catalogs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bomsync_catalog_parts",
			Help: "Catalog work of the last run: matched, assigned, unassigned, added, updated, failures.",
		}, []string{"outcome"}),
	}
	registerer.MustRegister(m.runs, m.duration, m.parts, m.attempts, m.batches, m.transitions, m.catalogs)
	return m
}

// StateChanged counts a state transition.
func (m *Metrics) StateChanged(_, to upload.State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to.String()).Inc()
}

// PartCompleted counts a part result.
func (m *Metrics) PartCompleted(r upload.UploadResult) {
	if m == nil {
		return
	}
	m.parts.WithLabelValues(string(r.Status), r.LastError.String()).Inc()
	m.attempts.Observe(float64(r.Attempts))
}

// BatchCompleted counts a finished batch.
func (m *Metrics) BatchCompleted(upload.BatchReport) {
	if m == nil {
		return
	}
	m.batches.Inc()
}

// ObserveRun records the totals of a finished run. Parts that never reached
// a terminal status are counted as pending.
func (m *Metrics) ObserveRun(s *upload.Summary) {
	if m == nil || s == nil {
		return
	}
	m.runs.WithLabelValues(s.State.String()).Inc()
	m.duration.Observe(s.Duration().Seconds())
	if s.PendingCount > 0 {
		m.parts.WithLabelValues(string(upload.StatusPending), errors.KindNone.String()).Add(float64(s.PendingCount))
	}

	c := s.Catalogs
	m.catalogs.WithLabelValues("matched").Set(float64(c.Matched))
	m.catalogs.WithLabelValues("assigned").Set(float64(c.Assigned))
	m.catalogs.WithLabelValues("unassigned").Set(float64(c.Unassigned))
	m.catalogs.WithLabelValues("added").Set(float64(c.Added))
	m.catalogs.WithLabelValues("updated").Set(float64(c.Updated))
	m.catalogs.WithLabelValues("failures").Set(float64(c.Failures))
}

// Attach registers the metrics as hooks on bs.
func (m *Metrics) Attach(bs bomsync.Bomsync) {
	bs.OnStateChanged(m.StateChanged)
	bs.OnPartResult(m.PartCompleted)
	bs.OnBatchCompleted(m.BatchCompleted)
}

// CacheCollector exposes catalog cache statistics as gauges read at gather
// time.
func CacheCollector(cache *catalogs.Cache) prometheus.Collector {
	return &cacheCollector{
		cache: cache,
		desc: prometheus.NewDesc("bomsync_catalog_cache_entries",
			"Catalog cache contents by kind.", []string{"kind"}, nil),
	}
}

type cacheCollector struct {
	cache *catalogs.Cache
	desc  *prometheus.Desc
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	if c.cache == nil {
		return
	}
	stats := c.cache.Stats()
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(stats.Catalogs), "catalogs")
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(stats.Members), "members")
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(stats.Refreshes), "refreshes")
}

// WriteFile writes everything gathered from g to path in the textfile
// collector format.
func WriteFile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
