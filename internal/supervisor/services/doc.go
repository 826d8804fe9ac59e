// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package services adapts the analysis run, the interval event log and the
// HTTP server to suture.Service.
//
// AnalysisService runs exactly once. It returns suture.ErrDoNotRestart when
// the run ends, because a consumed frame stream cannot be replayed.
package services
