package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceDomainCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveTask(ComandoProbarEndpoints, "DONE", 3*time.Second)
	m.ObserveProbe("COAH", "updated")
	m.ObserveProbe("COAH", "updated")
	m.ObservePeerRequest("consultar_materias", http.StatusOK, 200*time.Millisecond)
	m.ObserveDBQuery("bitacoras_export", 10*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.taskOutcomes.WithLabelValues(ComandoProbarEndpoints, "DONE")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.probeOutcomes.WithLabelValues("COAH", "updated")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.cacheHitRatio))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"tareas_total", "tareas_duration_seconds", "exh_externos_probes_total", "exh_externos_request_duration_seconds", "db_query_duration_seconds"} {
		assert.True(t, names[want], want)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `exh_externos_probes_total{clave="COAH",outcome="updated"} 2`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveTask("x", "DONE", time.Second)
	m.ObserveProbe("x", "failed")
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
