// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package detection provides the streaming frame-size anomaly detection
// pipeline: per-channel smoothing, divergence estimation, threshold
// classification and merging of anomalous samples into intervals.
//
// Detection Architecture:
//
//	Frame -> Pipeline -> channel bundle (by tag) -> Classifier -> Tracker -> Interval
//	                       |                                          |
//	                       v                                          v
//	      series.Buffer + smoothing.Dual + divergence.Estimator   Notifiers
//
// Each configured channel (keyframe, predicted, ...) owns one bundle. Frames
// are routed to a bundle by their type tag, so adding a channel is a
// configuration change. All bundles feed one shared Tracker, which keeps a
// single anomaly timeline across channels.
//
// The pipeline is single-pass. Feeding the same ordered frames into a fresh
// Pipeline always yields the same series and intervals; nothing in this
// package reads the wall clock.
//
// Concurrency: Process, Finish and Snapshot are serialized by one mutex so a
// live HTTP view can read snapshots while a single producer feeds frames.
// Snapshots are deep copies.
package detection
