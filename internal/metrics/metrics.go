// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package metrics exposes Prometheus instrumentation for the offline data
// layer: queue behavior, cache efficiency, upstream health, and sign-in/out
// outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Rate-limit queue metrics.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventmgmt_queue_depth",
			Help: "Number of upstream calls waiting in the rate-limit queue",
		},
	)

	QueueProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventmgmt_queue_processed_total",
			Help: "Upstream calls completed by the queue, by outcome",
		},
		[]string{"outcome"}, // "success", "error", "rate_limited"
	)

	QueueRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventmgmt_queue_retries_total",
			Help: "Upstream calls re-run after a server-issued retry-after",
		},
	)

	// Cache engine metrics.
	CacheReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventmgmt_cache_reads_total",
			Help: "Cache reads by the source that satisfied them",
		},
		[]string{"source"}, // "fresh", "stale", "network", "default", "demo"
	)

	StoreWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventmgmt_store_write_failures_total",
			Help: "Persistent store writes rejected for quota or I/O reasons",
		},
	)

	// Upstream health metrics.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventmgmt_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventmgmt_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker, by outcome",
		},
		[]string{"name", "outcome"}, // "success", "failure", "rejected"
	)

	RateLimitRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventmgmt_upstream_rate_limit_remaining",
			Help: "Remaining upstream requests as last reported by the proxy",
		},
	)

	AuthGateTripped = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventmgmt_auth_gate_tripped",
			Help: "1 when the session auth gate is open (upstream calls blocked)",
		},
	)

	// Sign-in/out coordinator metrics.
	SignInSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventmgmt_sign_steps_total",
			Help: "Individual sign-in/out field writes, by operation and outcome",
		},
		[]string{"operation", "outcome"}, // operation: "sign_in", "sign_out"
	)

	SignInSequences = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventmgmt_sign_sequences_total",
			Help: "Completed sign-in/out sequences, by operation and outcome",
		},
		[]string{"operation", "outcome"}, // "success", "error", "cancelled"
	)
)
