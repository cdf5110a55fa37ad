package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsServicePlannerCollectors(t *testing.T) {
	m := NewMetricsService()

	m.ObservePlanGeneration(OutcomeGenerated, 10, time.Millisecond)
	m.ObservePlanGeneration(OutcomeRejected, 0, 0)
	m.RecordSessionUpdate("completed")
	m.RecordSessionUpdate("completed")
	m.RecordExport("csv")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.plansGenerated.WithLabelValues(OutcomeGenerated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.plansGenerated.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionUpdates.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportsRendered.WithLabelValues("csv")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.planSessions))
}

func TestMetricsServiceCacheRatio(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	assert.InDelta(t, 2.0/3.0, testutil.ToFloat64(m.cacheHitRatio), 1e-9)
}

func TestMetricsServiceHandler(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/plans/me", http.StatusOK, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.Contains(t, w.Body.String(), `study_plans_generated_total{outcome="generated"} 0`)
	assert.Contains(t, w.Body.String(), `study_plans_generated_total{outcome="failed"} 0`)
}

func TestMetricsServiceNilIsNoop(t *testing.T) {
	var m *MetricsService
	m.ObservePlanGeneration(OutcomeGenerated, 1, time.Millisecond)
	m.RecordSessionUpdate("notes")
	m.RecordCacheOperation(true, 0)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
