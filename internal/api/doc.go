// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

/*
Package api serves a read-only HTTP view of a running analysis.

Endpoints:

	GET /healthz                 liveness and pipeline state
	GET /metrics                 Prometheus metrics
	GET /api/v1/snapshot         current pipeline snapshot (?channel=name)
	GET /api/v1/intervals        finalized intervals plus the provisional one
	GET /api/v1/reports          stored reports, newest first (?limit=n)
	GET /api/v1/reports/{id}     one stored report

Every /api/v1 response uses the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}

The snapshot endpoints return 503 until a pipeline is attached, and the
report endpoints return 503 when no report store is configured.

Routing uses chi with CORS (go-chi/cors) and per-IP rate limiting
(go-chi/httprate) on the /api/v1 group.
*/
package api
