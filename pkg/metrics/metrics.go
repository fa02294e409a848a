package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service's Prometheus collectors. Construct one per
// process with a fresh registry in tests to avoid duplicate registration.
type Metrics struct {
	PaymentOutcomes    *prometheus.CounterVec
	DownstreamLatency  *prometheus.HistogramVec
	DownstreamTimeouts *prometheus.CounterVec
	DroppedReplies     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PaymentOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_payment_outcomes_total",
			Help: "Payment attempts by final outcome.",
		}, []string{"outcome"}),
		DownstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ticketflow_downstream_request_seconds",
			Help:    "Round-trip latency of request/reply calls per downstream service.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		DownstreamTimeouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_downstream_timeouts_total",
			Help: "Request/reply calls that hit the reply deadline.",
		}, []string{"service"}),
		DroppedReplies: f.NewCounter(prometheus.CounterOpts{
			Name: "ticketflow_dropped_replies_total",
			Help: "Inbound replies with no matching waiter (late or duplicate).",
		}),
	}
}
