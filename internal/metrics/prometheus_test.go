package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveTier("room-detail", OutcomeSuccess, 120*time.Millisecond)
	pr.IncResolution(OutcomeSuccess)
	pr.ObserveCycle(3 * time.Second)
	pr.IncCycleSkipped()
	pr.IncNotification(OutcomeFailed)
	pr.SetLive("889", true)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"livewatch_tier_duration_seconds",
		"livewatch_resolutions_total",
		"livewatch_cycle_duration_seconds",
		"livewatch_cycles_skipped_total",
		"livewatch_notifications_total",
		"livewatch_entity_live",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestHTTPHandler_ServesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.SetLive("12345", false)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `livewatch_entity_live{entity="12345"} 0`), "body:\n%s", body)
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, NoopRecorder{}, OrNoop(nil))

	pr := NewPrometheusRecorder(nil)
	assert.Same(t, pr, OrNoop(pr))
}
