/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "weatherslots"

var (
	// GenerationsTotal counts generated boards by origin (session, api, cli).
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generations_total",
		Help:      "Weather boards generated.",
	}, []string{"origin"})

	// RainPercent tracks the distribution of sampled rain percentages.
	RainPercent = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rain_percent",
		Help:      "Sampled rain percentage per generated board.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	RevealRunsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reveal_runs_started_total",
		Help:      "Reveal runs started.",
	}, []string{"profile"})

	RevealRunsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reveal_runs_completed_total",
		Help:      "Reveal runs that revealed every slot.",
	}, []string{"profile"})

	RevealRunsSuperseded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reveal_runs_superseded_total",
		Help:      "Reveal runs abandoned because a newer run started.",
	}, []string{"profile"})

	SlotsRevealed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "slots_revealed_total",
		Help:      "Slot reveal events applied.",
	})

	// StaleRevealEvents counts timer callbacks dropped by the run ID guard.
	StaleRevealEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_reveal_events_total",
		Help:      "Reveal timer callbacks ignored because their run was superseded.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Sessions currently held by the registry.",
	})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "HTTP requests served.",
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_active_connections",
		Help:      "HTTP requests in flight.",
	})

	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_websocket_connections",
		Help:      "Open session event streams.",
	})
)

// Handler exposes metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
