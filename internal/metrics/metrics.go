// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

// Package metrics exposes Prometheus collectors for the Praxis realtime core:
// API latency and throughput, cache efficiency, broker fan-out behavior, and
// live stream sessions.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Response cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_evictions_total",
			Help: "Total number of response cache evictions (expiry and invalidation)",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "response_cache_entries",
			Help: "Current number of response cache entries",
		},
	)

	// Event broker metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_events_dropped_total",
			Help: "Total number of events dropped from saturated subscriber buffers",
		},
	)

	ActiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broker_active_subscribers",
			Help: "Current number of registered event subscribers",
		},
	)

	DegradedSubscribersClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_degraded_subscribers_closed_total",
			Help: "Total number of subscribers closed after persistent buffer saturation",
		},
	)

	ReplayGaps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_replay_gaps_total",
			Help: "Total number of reconnects whose requested replay history was already evicted",
		},
	)

	// Stream session metrics
	StreamSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stream_sessions_active",
			Help: "Current number of open stream sessions",
		},
		[]string{"transport"}, // sse, websocket
	)

	StreamHeartbeats = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_heartbeats_total",
			Help: "Total number of heartbeat frames written",
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
