// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

/*
Package metrics provides Prometheus metrics for the detection pipeline.

# Available Metrics

Frame Metrics:
  - harakiri_frames_processed_total: Accepted frames (counter)
    Labels: channel
  - harakiri_frames_rejected_total: Rejected frames (counter)
    Labels: reason (out_of_order, unknown_channel, invalid_frame, finished)

Detection Metrics:
  - harakiri_anomalous_samples_total: Samples above threshold (counter)
    Labels: channel
  - harakiri_divergence_clamped_total: Clamped estimates (counter)
    Labels: channel
  - harakiri_divergence_estimate: Latest estimate (gauge)
    Labels: channel

Interval Metrics:
  - harakiri_anomaly_intervals_total: Finalized intervals (counter)
  - harakiri_anomaly_interval_seconds: Interval length in stream time (histogram)

Analysis Metrics:
  - harakiri_analysis_duration_seconds: Wall-clock run time (histogram)
  - harakiri_analysis_runs_total: Runs by status (counter)
  - harakiri_events_published_total: Interval events by status (counter)

API Metrics:
  - harakiri_api_requests_total: Requests (counter)
    Labels: method, route, status
  - harakiri_api_request_duration_seconds: Latency (histogram)
    Labels: method, route
  - harakiri_api_active_requests: In-flight requests (gauge)

# Metrics Endpoint

In serve mode metrics are exposed at /metrics:

	curl http://localhost:3858/metrics

Example PromQL:

	# Anomalous sample rate per channel
	rate(harakiri_anomalous_samples_total[1m])

# Cardinality

Channel labels come from configuration and are bounded by the number of
configured channels. Reject reasons are a fixed set. API routes are labeled
with the chi route pattern, not the raw path.
*/
package metrics
