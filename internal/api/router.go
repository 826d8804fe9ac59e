// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/harakiri/internal/middleware"
)

// RouterConfig configures the HTTP middleware stack.
type RouterConfig struct {
	// CORSOrigins lists allowed origins. Empty disables CORS headers.
	CORSOrigins []string

	// RateLimitRequests per RateLimitWindow per client IP on /api/v1.
	// Zero disables rate limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// DefaultRouterConfig returns the router defaults. CORS origins must be
// configured explicitly.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSOrigins:       []string{},
		RateLimitRequests: 120,
		RateLimitWindow:   time.Minute,
	}
}

// NewRouter builds the chi router for h.
func NewRouter(cfg RouterConfig, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		// Global so OPTIONS preflight requests are answered.
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         86400,
		}))
	}

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}
		r.Use(middleware.PrometheusMetrics)

		r.Get("/snapshot", h.Snapshot)
		r.Get("/intervals", h.Intervals)
		r.Get("/reports", h.Reports)
		r.Get("/reports/{id}", h.Report)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("no route for " + r.URL.Path)
	})

	return r
}
