package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout instruments the payment verification pipeline. A nil *Checkout is valid and records nothing.
type Checkout struct {
	outcomes  *prometheus.CounterVec
	latencyMS *prometheus.HistogramVec
	degraded  prometheus.Counter
	replays   prometheus.Counter
}

func NewCheckout(reg prometheus.Registerer) *Checkout {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dabba",
		Subsystem: "checkout",
		Name:      "verifications_total",
		Help:      "Payment verification requests by outcome code.",
	}, []string{"outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dabba",
		Subsystem: "checkout",
		Name:      "verification_duration_ms",
		Help:      "Payment verification latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"outcome"})
	degraded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dabba",
		Subsystem: "checkout",
		Name:      "degraded_commits_total",
		Help:      "Orders committed without their line items.",
	})
	replays := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dabba",
		Subsystem: "checkout",
		Name:      "replayed_commits_total",
		Help:      "Verification requests answered with an already committed order.",
	})

	reg.MustRegister(outcomes, latency, degraded, replays)
	return &Checkout{outcomes: outcomes, latencyMS: latency, degraded: degraded, replays: replays}
}

func (m *Checkout) Observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
	m.latencyMS.WithLabelValues(outcome).Observe(float64(elapsed.Milliseconds()))
}

func (m *Checkout) Degraded() {
	if m == nil {
		return
	}
	m.degraded.Inc()
}

func (m *Checkout) Replayed() {
	if m == nil {
		return
	}
	m.replays.Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
