package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Suggestion requests by outcome (suggested, no_capacity, error).
	Suggestions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yard_placement_suggestions_total",
			Help: "Total number of placement suggestions by outcome",
		},
		[]string{"outcome"},
	)

	// Confirmations by outcome (committed, rejected, invalid, error).
	Confirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yard_placement_confirmations_total",
			Help: "Total number of placement confirmations by outcome",
		},
		[]string{"outcome"},
	)

	Releases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yard_placement_releases_total",
			Help: "Total number of released or relocated placements by kind",
		},
		[]string{"kind"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yard_operation_duration_seconds",
			Help:    "Duration of timed operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "result"},
	)
)

func init() {
	prometheus.MustRegister(Suggestions, Confirmations, Releases, OperationDuration)
}
