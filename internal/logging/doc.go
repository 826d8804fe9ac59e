// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package logging provides centralized zerolog-based structured logging.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("channel", "keyframe").Msg("Channel configured")
//	logging.Error().Err(err).Msg("Analysis failed")
//
//	// Session-scoped logging
//	ctx = logging.ContextWithSessionID(ctx, logging.GenerateSessionID())
//	logging.Ctx(ctx).Info().Msg("Analysis started")
//
// # Configuration
//
// Environment Variables (via internal/config):
//
//	HARAKIRI_LOGGING_LEVEL   - trace, debug, info, warn, error (default: info)
//	HARAKIRI_LOGGING_FORMAT  - json, console (default: json)
//	HARAKIRI_LOGGING_CALLER  - include caller file:line (default: false)
//
// # Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// # slog Adapter
//
// NewSlogLogger returns an *slog.Logger backed by the global zerolog logger,
// for suture (via sutureslog) and watermill.
package logging
