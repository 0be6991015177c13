// Package metrics declares the Prometheus collectors of the sync core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "theora",
			Name:      "persistence_failures_total",
			Help:      "Local store operations that failed.",
		},
		[]string{"op"},
	)

	RemoteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "theora",
			Name:      "remote_failures_total",
			Help:      "Remote document store calls that failed after retries.",
		},
		[]string{"op"},
	)

	ReconciledFields = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "theora",
			Name:      "reconcile_fields_total",
			Help:      "Synchronized fields resolved at sign-in, by winning source.",
		},
		[]string{"source"},
	)

	HandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "theora",
			Name:      "bus_handler_panics_total",
			Help:      "Event handlers that panicked during emission.",
		},
		[]string{"event"},
	)

	GenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "theora",
			Name:      "ai_generation_failures_total",
			Help:      "AI provider calls that failed.",
		},
		[]string{"provider"},
	)

	NotificationsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "theora",
			Name:      "notifications_generated_total",
			Help:      "Notifications produced by the background task.",
		},
	)
)
