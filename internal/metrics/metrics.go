// Package metrics exposes Prometheus instrumentation for the population and
// deletion engines and the HTTP layer.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector of the service. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	RecordsInserted  prometheus.Counter
	RecordsRejected  prometheus.Counter
	InsertChunks     *prometheus.CounterVec
	PopulateRuns     *prometheus.CounterVec
	PopulateDuration prometheus.Histogram
	RecordsDeleted   prometheus.Counter
	DeleteChunks     *prometheus.CounterVec
	DeleteAllRuns    *prometheus.CounterVec
	DeleteDuration   prometheus.Histogram
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// New registers all collectors with reg. Passing prometheus.DefaultRegisterer
// makes them visible on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RecordsInserted: f.NewCounter(prometheus.CounterOpts{
			Name: "userdir_records_inserted_total",
			Help: "Total number of user records accepted by storage",
		}),
		RecordsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "userdir_records_rejected_total",
			Help: "Total number of generated user records refused by storage",
		}),
		InsertChunks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "userdir_insert_chunks_total",
			Help: "Insert chunk writes by outcome",
		}, []string{"outcome"}),
		PopulateRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "userdir_populate_runs_total",
			Help: "Populate runs by outcome",
		}, []string{"outcome"}),
		PopulateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "userdir_populate_duration_seconds",
			Help:    "Duration of populate runs",
			Buckets: durationBuckets,
		}),
		RecordsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "userdir_records_deleted_total",
			Help: "Total number of user records removed by bulk deletion",
		}),
		DeleteChunks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "userdir_delete_chunks_total",
			Help: "Delete chunk operations by outcome",
		}, []string{"outcome"}),
		DeleteAllRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "userdir_delete_all_runs_total",
			Help: "Bulk deletion runs by terminal state",
		}, []string{"state"}),
		DeleteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "userdir_delete_all_duration_seconds",
			Help:    "Duration of bulk deletion runs",
			Buckets: durationBuckets,
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "userdir_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "userdir_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveInsertChunk records one insert chunk. A failed chunk counts all of
// its records as rejected.
func (m *Metrics) ObserveInsertChunk(inserted, rejected int, failed bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	m.InsertChunks.WithLabelValues(outcome).Inc()
	m.RecordsInserted.Add(float64(inserted))
	m.RecordsRejected.Add(float64(rejected))
}

// ObservePopulate records the outcome and duration of a populate run.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObservePopulate(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.PopulateRuns.WithLabelValues(outcome).Inc()
	m.PopulateDuration.Observe(time.Since(start).Seconds())
}

// ObserveDeleteChunk records one delete chunk.
func (m *Metrics) ObserveDeleteChunk(deleted int64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.DeleteChunks.WithLabelValues("failed").Inc()
		return
	}
	m.DeleteChunks.WithLabelValues("ok").Inc()
	m.RecordsDeleted.Add(float64(deleted))
}

// ObserveDeleteAll records the terminal state and duration of a run.
func (m *Metrics) ObserveDeleteAll(state string, start time.Time) {
	if m == nil {
		return
	}
	m.DeleteAllRuns.WithLabelValues(state).Inc()
	m.DeleteDuration.Observe(time.Since(start).Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
