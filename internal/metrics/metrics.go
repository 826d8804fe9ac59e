// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Frame Metrics
	FramesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harakiri_frames_processed_total",
			Help: "Total number of frames accepted by the detection pipeline",
		},
		[]string{"channel"},
	)

	FramesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harakiri_frames_rejected_total",
			Help: "Total number of frames rejected by the detection pipeline",
		},
		[]string{"reason"}, // "out_of_order", "unknown_channel", "invalid_frame", "finished"
	)

	// Detection Metrics
	AnomalousSamples = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harakiri_anomalous_samples_total",
			Help: "Total number of samples classified as anomalous",
		},
		[]string{"channel"},
	)

	DivergenceClamped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harakiri_divergence_clamped_total",
			Help: "Total number of divergence estimates replaced by the outlier clamp",
		},
		[]string{"channel"},
	)

	DivergenceEstimate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "harakiri_divergence_estimate",
			Help: "Latest divergence estimate per channel",
		},
		[]string{"channel"},
	)

	// Interval Metrics
	AnomalyIntervals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harakiri_anomaly_intervals_total",
			Help: "Total number of finalized anomaly intervals",
		},
	)

	AnomalyIntervalSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harakiri_anomaly_interval_seconds",
			Help:    "Stream-time length of finalized anomaly intervals",
			Buckets: []float64{0, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Analysis Metrics
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harakiri_analysis_duration_seconds",
			Help:    "Wall-clock duration of complete analysis runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	AnalysisRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harakiri_analysis_runs_total",
			Help: "Total number of analysis runs by outcome",
		},
		[]string{"status"}, // "completed", "failed", "canceled"
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harakiri_events_published_total",
			Help: "Total number of interval events published",
		},
		[]string{"status"}, // "success", "error"
	)

	// API Metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harakiri_api_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harakiri_api_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harakiri_api_active_requests",
			Help: "Number of HTTP API requests in flight",
		},
	)
)

// RecordFrame records one accepted frame and its classification.
func RecordFrame(channel string, divergence float64, anomalous, clamped bool) {
	FramesProcessed.WithLabelValues(channel).Inc()
	DivergenceEstimate.WithLabelValues(channel).Set(divergence)
	if anomalous {
		AnomalousSamples.WithLabelValues(channel).Inc()
	}
	if clamped {
		DivergenceClamped.WithLabelValues(channel).Inc()
	}
}

// RecordFrameRejected records one rejected frame.
func RecordFrameRejected(reason string) {
	if reason == "" {
		reason = "other"
	}
	FramesRejected.WithLabelValues(reason).Inc()
}

// RecordInterval records one finalized anomaly interval.
func RecordInterval(seconds float64) {
	AnomalyIntervals.Inc()
	AnomalyIntervalSeconds.Observe(seconds)
}

// RecordAnalysisRun records a finished analysis run.
func RecordAnalysisRun(duration time.Duration, status string) {
	AnalysisDuration.Observe(duration.Seconds())
	AnalysisRuns.WithLabelValues(status).Inc()
}

// RecordEventPublish records an interval event publish attempt.
func RecordEventPublish(err error) {
	if err != nil {
		EventsPublished.WithLabelValues("error").Inc()
		return
	}
	EventsPublished.WithLabelValues("success").Inc()
}

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequests.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}
