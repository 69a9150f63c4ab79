// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

// Package api provides HTTP routing for the ranking editor using Chi.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/toplist-labs/rankforge/internal/engine"
	"github.com/toplist-labs/rankforge/internal/snapshot"
)

// StatsProvider reports durable store health for the ready endpoint.
type StatsProvider interface {
	Stats() snapshot.Stats
}

// Router wires the edit engine to HTTP routes.
type Router struct {
	engine  *engine.Engine
	stats   StatsProvider
	timeout time.Duration
}

// NewRouter creates a router over the engine. stats may be nil when the
// store does not expose health statistics.
func NewRouter(eng *engine.Engine, stats StatsProvider, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Router{engine: eng, stats: stats, timeout: timeout}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(router.timeout))

	r.Get("/healthz", router.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/rankings", func(r chi.Router) {
			r.Get("/", router.listRankings)
			r.Post("/", router.addOrMove)
			r.Delete("/", router.clearAll)
			r.Get("/slots", router.slotView)
			r.Post("/reorder", router.reorder)
			r.Post("/replace", router.replace)
			r.Delete("/{productID}", router.remove)
		})

		r.Get("/status", router.status)
		r.Post("/refresh", router.refresh)
		r.Post("/resync", router.resync)
		r.Put("/catalog", router.setCatalog)
	})

	return r
}
