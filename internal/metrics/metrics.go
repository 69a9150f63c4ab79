// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

// Package metrics exposes Prometheus instrumentation for the edit engine.
// Metrics are served from the /metrics endpoint in Prometheus text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Snapshot Store Metrics
	SnapshotWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_writes_total",
			Help: "Total number of durable snapshot upserts",
		},
	)

	SnapshotWriteLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshot_write_duration_seconds",
			Help:    "Durable snapshot upsert latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
	)

	SnapshotClears = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_clears_total",
			Help: "Total number of snapshot deletions after confirmed saves",
		},
	)

	SnapshotsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshots_pending",
			Help: "Number of unflushed snapshots awaiting a remote save",
		},
	)

	SnapshotMigratedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_migrated_rows_total",
			Help: "Legacy per-edit snapshot rows collapsed on startup",
		},
	)

	// Remote Save Metrics
	SaveAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_save_attempts_total",
			Help: "Remote save attempts by outcome",
		},
		[]string{"outcome"},
	)

	SaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "remote_save_duration_seconds",
			Help:    "Remote save duration in seconds, including retries",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	SaveRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remote_save_retries_total",
			Help: "Total number of in-schedule remote save retries",
		},
	)

	BackgroundRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remote_save_background_retries_total",
			Help: "Background retry cycles entered after schedule exhaustion",
		},
	)

	// Engine Metrics
	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_mutations_total",
			Help: "Engine mutations by operation",
		},
		[]string{"op"},
	)

	DebounceResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_debounce_resets_total",
			Help: "Debounce timer re-arms caused by successive edits",
		},
	)

	RecoveryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_recovery_runs_total",
			Help: "Startup recovery runs by outcome",
		},
		[]string{"outcome"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Circuit breaker requests by result",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)
