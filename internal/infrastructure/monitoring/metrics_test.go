package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMetricsCollector_StudioMetrics(t *testing.T) {
	// Arrange
	m := NewMetricsCollector(zaptest.NewLogger(t))

	// Act
	m.VideoJobStarted()
	m.VideoPolled()
	m.VideoPolled()
	m.VideoJobFinished("success", 30*time.Second)
	m.ImageAttempted("failure")
	m.StorageFailed("save saved recipes")
	m.GenerationRequest("recipe", "success", 2*time.Second)

	// Assert
	assert.Equal(t, 0.0, testutil.ToFloat64(m.videoJobsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.videoPollsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.videoJobsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.imageAttemptsTotal.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageFailures.WithLabelValues("save saved recipes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationRequestsTotal.WithLabelValues("recipe", "success")))
}

func TestMetricsCollector_Handler(t *testing.T) {
	m := NewMetricsCollector(zaptest.NewLogger(t))
	m.RequestStarted()
	m.RequestFinished(http.MethodGet, "/api/v1/studio/state", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `studio_http_requests_total{method="GET",route="/api/v1/studio/state",status_code="200"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewTracingProvider_Disabled(t *testing.T) {
	tp, err := NewTracingProvider(context.Background(), TracingConfig{Enabled: false}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}
