package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInsertChunkCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveInsertChunk(180, 20, false)
	m.ObserveInsertChunk(0, 200, true)

	assert.Equal(t, float64(180), testutil.ToFloat64(m.RecordsInserted))
	assert.Equal(t, float64(220), testutil.ToFloat64(m.RecordsRejected))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InsertChunks.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InsertChunks.WithLabelValues("failed")))
}

func TestPopulateRuns(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePopulate("ok", time.Now())
	m.ObservePopulate("canceled", time.Now())

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PopulateRuns.WithLabelValues("canceled")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PopulateDuration))
}

func TestDeleteCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDeleteChunk(1000, nil)
	m.ObserveDeleteChunk(0, errors.New("boom"))
	m.ObserveDeleteAll("Drained", time.Now())

	assert.Equal(t, float64(1000), testutil.ToFloat64(m.RecordsDeleted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DeleteChunks.WithLabelValues("failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DeleteAllRuns.WithLabelValues("Drained")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DeleteDuration))
}

func TestHTTPCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTP("GET", "/users", 200, 10*time.Millisecond)
	m.ObserveHTTP("GET", "/users", 200, 20*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/users", "200")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveInsertChunk(1, 1, false)
		m.ObservePopulate("ok", time.Now())
		m.ObserveDeleteChunk(1, nil)
		m.ObserveDeleteAll("Drained", time.Now())
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})
}

func TestRegisterTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}
