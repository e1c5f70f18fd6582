package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"hearts-echo/internal/core"
)

// Metrics holds the Prometheus collectors for the echo endpoints.
type Metrics struct {
	echoRequests *prometheus.CounterVec
	candidates   prometheus.Histogram
	fallbacks    prometheus.Counter
}

// MustNewMetrics registers the collectors with reg and panics on duplicate
// registration. A nil reg gets a private registry.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	echoRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hearts_echo",
			Name:      "echo_requests_total",
			Help:      "Echo requests by selection outcome and template bank.",
		},
		[]string{"outcome", "bank"},
	)
	candidates := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hearts_echo",
			Name:      "eligible_templates",
			Help:      "Number of eligible templates per successful selection.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		},
	)
	fallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hearts_echo",
			Name:      "language_fallbacks_total",
			Help:      "Requests for a language without its own bank that were served the default bank.",
		},
	)

	reg.MustRegister(echoRequests, candidates, fallbacks)

	return &Metrics{
		echoRequests: echoRequests,
		candidates:   candidates,
		fallbacks:    fallbacks,
	}
}

func (m *Metrics) observe(bank *core.Bank, res core.Result) {
	if m == nil {
		return
	}

	label := bank.Lang
	if bank.Fallback {
		label = core.DefaultLang
		m.fallbacks.Inc()
	}

	m.echoRequests.WithLabelValues(string(res.Outcome), label).Inc()
	if res.Outcome == core.OutcomeSelected {
		m.candidates.Observe(float64(res.Candidates))
	}
}
