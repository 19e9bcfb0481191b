package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveUpsert(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveUpsert("user", "insert")
	c.ObserveUpsert("user", "update")
	c.ObserveUpsert("user", "update")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.upserts.WithLabelValues("user", "insert")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.upserts.WithLabelValues("user", "update")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.upserts.WithLabelValues("user", "race")))
}

func TestRecordAuthOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthOutcome("session", OutcomeSuccess)
	c.RecordAuthOutcome("external", OutcomePanic)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.authOutcomes.WithLabelValues("session", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authOutcomes.WithLabelValues("external", OutcomePanic)))
}

func TestRecordLogin(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("email", true)
	c.RecordLogin("email", false)
	c.RecordLogin("email", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.logins.WithLabelValues("email", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.logins.WithLabelValues("email", "failure")))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPRequest(http.MethodGet, "/api/v1/health", http.StatusOK, 5*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `zenga_http_requests_total{method="GET",route="/api/v1/health",status_code="200"} 1`)
	assert.Contains(t, string(body), "zenga_http_request_duration_seconds_bucket")
}
