// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

// GenerateSessionID creates a new analysis session id.
func GenerateSessionID() string {
	return uuid.New().String()
}

// ContextWithSessionID returns a context carrying the analysis session id.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the session id, or "" if none is set.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger with the context's session id attached.
//
//	logging.Ctx(ctx).Info().Msg("Analysis started")
//	// {"level":"info","session_id":"...","message":"Analysis started"}
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if id := SessionIDFromContext(ctx); id != "" {
		l = l.With().Str("session_id", id).Logger()
	}
	return &l
}
