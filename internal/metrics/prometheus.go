package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "livewatch"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	tierDuration  *prom.HistogramVec
	resolutions   *prom.CounterVec
	cycleDuration prom.Histogram
	cyclesSkipped prom.Counter
	notifications *prom.CounterVec
	live          *prom.GaugeVec
}

// NewPrometheusRecorder constructs the engine metrics and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		tierDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "tier_duration_seconds",
			Help:      "Duration of individual resolution tier attempts",
			Buckets:   prom.DefBuckets,
		}, []string{"tier", "outcome"}),
		resolutions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Entity resolutions by outcome",
		}, []string{"outcome"}),
		cycleDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of complete poll cycles",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		cyclesSkipped: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_skipped_total",
			Help:      "Scheduler ticks skipped because a cycle was still running",
		}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Live notifications by delivery outcome",
		}, []string{"outcome"}),
		live: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "entity_live",
			Help:      "Last known live state per monitored entity (1 = live)",
		}, []string{"entity"}),
	}
	reg.MustRegister(pr.tierDuration, pr.resolutions, pr.cycleDuration, pr.cyclesSkipped, pr.notifications, pr.live)
	return pr
}

func (p *PrometheusRecorder) ObserveTier(tier, outcome string, d time.Duration) {
	p.tierDuration.WithLabelValues(tier, outcome).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncResolution(outcome string) {
	p.resolutions.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveCycle(d time.Duration) {
	p.cycleDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCycleSkipped() {
	p.cyclesSkipped.Inc()
}

func (p *PrometheusRecorder) IncNotification(outcome string) {
	p.notifications.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetLive(entityID string, live bool) {
	v := 0.0
	if live {
		v = 1
	}
	p.live.WithLabelValues(entityID).Set(v)
}

// HTTPHandler returns an http.Handler that serves the metrics in reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
