// Package metrics exposes Prometheus counters for the aggregation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "aggregation_runs_total",
		Help:      "Completed aggregation runs.",
	})

	RunFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "aggregation_run_failures_total",
		Help:      "Aggregation runs aborted by a fatal error.",
	})

	EventsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "events_accepted_total",
		Help:      "Buffer events folded into run totals.",
	})

	EventsBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "events_blocked_total",
		Help:      "Buffer events discarded by the referrer blocklist.",
	})

	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "decode_failures_total",
		Help:      "Malformed buffer lines that aborted a run.",
	})
)
