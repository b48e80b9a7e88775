package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estado_sync_runs_total",
		Help: "Sync runs by outcome (completed/failed).",
	}, []string{"outcome"})

	ordersSeenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estado_orders_seen_total",
		Help: "Shipped orders inspected across all runs.",
	})

	eventsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estado_fulfillment_events_created_total",
		Help: "Shopify fulfillment events created.",
	})

	skipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estado_fulfillment_skips_total",
		Help: "Fulfillments or trackings skipped (already delivered, duplicate status, ambiguous text).",
	})

	errorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "estado_sync_errors_total",
		Help: "Per-order errors that did not abort the run.",
	})

	runDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "estado_sync_run_duration_seconds",
		Help: "Duration of the most recent completed run.",
	})
)
