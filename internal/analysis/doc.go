// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package analysis drives a detection pipeline from a frame source to
// completion and summarizes the run in a Report.
//
// Run pulls frames until the source returns io.EOF, then calls
// Pipeline.Finish so a trailing open interval is emitted. Rejected frames are
// counted by reason and skipped; with Options.Strict the first rejection ends
// the run. Cancelling the context stops the run between frames without
// finishing the pipeline.
//
// The wall clock is read only here, for the report's start and finish times.
package analysis
