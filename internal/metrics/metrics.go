// Package metrics implements Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firestige.xyz/p4calc/internal/core"
)

var (
	// RoundsTotal counts finished rounds by outcome
	RoundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p4calc_rounds_total",
			Help: "Total number of calculator rounds by outcome",
		},
		[]string{"outcome"},
	)

	// RoundLatencySeconds measures request-to-reply time of answered rounds
	RoundLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "p4calc_round_latency_seconds",
			Help:    "Time between sending a request and receiving its reply",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 18), // 10µs to ~1.3s
		},
	)

	// FramesTotal counts link-layer frames by direction
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p4calc_frames_total",
			Help: "Total number of P4calc frames sent or received",
		},
		[]string{"direction"},
	)

	// SessionPass is 1 while every round of the session has passed
	SessionPass = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "p4calc_session_pass",
			Help: "Aggregate session state (1=all rounds passed, 0=at least one failure)",
		},
	)

	// ResponderRepliesTotal counts replies of the software responder by source of the result
	ResponderRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p4calc_responder_replies_total",
			Help: "Total number of requests handled by the software responder",
		},
		[]string{"result"},
	)
)

// ObserveRound records one finished round.
func ObserveRound(outcome string, latency time.Duration) {
	RoundsTotal.WithLabelValues(outcome).Inc()
	if latency > 0 {
		RoundLatencySeconds.Observe(latency.Seconds())
	}
}

// ObserveFrame records one frame crossing the transport.
func ObserveFrame(dir core.Direction) {
	FramesTotal.WithLabelValues(dir.String()).Inc()
}

// SetSessionPass publishes the aggregate session state.
func SetSessionPass(pass bool) {
	if pass {
		SessionPass.Set(1)
		return
	}
	SessionPass.Set(0)
}
