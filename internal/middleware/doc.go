// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

/*
Package middleware provides HTTP middleware for the read-only API.

Key Components:

  - RequestID: UUID request ids in the X-Request-ID header and context
  - AccessLog: one zerolog line per request
  - PrometheusMetrics: request count, latency and in-flight gauge

All middleware has the func(http.Handler) http.Handler shape used by chi:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)

PrometheusMetrics labels requests with the chi route pattern
("/api/v1/reports/{id}") so report ids do not create new series.
*/
package middleware
