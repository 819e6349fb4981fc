package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nysc",
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Total number of pending-payment sweep runs broken down by result.",
	}, []string{"result"})

	sweepPayments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nysc",
		Subsystem: "sweep",
		Name:      "payments_total",
		Help:      "Total number of payments touched by the sweep broken down by outcome.",
	}, []string{"outcome"})

	gatewayVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nysc",
		Subsystem: "gateway",
		Name:      "verifications_total",
		Help:      "Total number of gateway verification calls broken down by result.",
	}, []string{"result"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nysc",
		Subsystem: "sweep",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of pending-payment sweep runs.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	sweepPendingScanned = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nysc",
		Subsystem: "sweep",
		Name:      "pending_scanned",
		Help:      "Number of pending payments picked up by the most recent sweep.",
	})
)
