// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tomtom215/harakiri/internal/detection"
	"github.com/tomtom215/harakiri/internal/logging"
	"github.com/tomtom215/harakiri/internal/metrics"
	"github.com/tomtom215/harakiri/internal/source"
)

// Run status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Options controls a run.
type Options struct {
	// Strict aborts the run on the first rejected frame.
	Strict bool
	// SessionID identifies the run; a new UUID is generated when empty.
	SessionID string
}

// ChannelSummary is the per-channel part of a Report.
type ChannelSummary struct {
	Name      string `json:"name"`
	Samples   int    `json:"samples"`
	Anomalous int    `json:"anomalous"`
	Clamped   int    `json:"clamped"`
}

// Report summarizes one analysis run.
type Report struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Frames           int            `json:"frames"`
	Rejected         int            `json:"rejected"`
	RejectedByReason map[string]int `json:"rejected_by_reason,omitempty"`

	Channels  []ChannelSummary     `json:"channels"`
	Intervals []detection.Interval `json:"intervals"`
}

// Duration returns the wall-clock length of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Run feeds every frame from src into p. It returns the report even when the
// run fails, together with the error.
func Run(ctx context.Context, src source.Source, p *detection.Pipeline, opts Options) (*Report, error) {
	if opts.SessionID == "" {
		opts.SessionID = logging.GenerateSessionID()
	}
	ctx = logging.ContextWithSessionID(ctx, opts.SessionID)
	log := logging.Ctx(ctx)

	report := &Report{
		ID:               opts.SessionID,
		Source:           source.NameOf(src),
		StartedAt:        time.Now().UTC(),
		RejectedByReason: make(map[string]int),
	}
	log.Info().Str("source", report.Source).Bool("strict", opts.Strict).Msg("Analysis started")

	err := consume(ctx, src, p, opts, report)
	if err == nil {
		p.Finish(ctx)
	}
	finalize(report, p, err)

	metrics.RecordAnalysisRun(report.Duration(), report.Status)
	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.
		Str("status", report.Status).
		Int("frames", report.Frames).
		Int("rejected", report.Rejected).
		Int("intervals", len(report.Intervals)).
		Dur("duration", report.Duration()).
		Msg("Analysis finished")

	return report, err
}

func consume(ctx context.Context, src source.Source, p *detection.Pipeline, opts Options, report *Report) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		if _, err := p.Process(ctx, frame); err != nil {
			reason := detection.RejectReason(err)
			report.Rejected++
			report.RejectedByReason[reason]++
			if opts.Strict {
				return fmt.Errorf("frame %d rejected: %w", report.Frames+report.Rejected, err)
			}
			logging.Ctx(ctx).Warn().Err(err).Str("reason", reason).Msg("Frame rejected")
			continue
		}
		report.Frames++
	}
}

func finalize(report *Report, p *detection.Pipeline, err error) {
	report.FinishedAt = time.Now().UTC()

	switch {
	case err == nil:
		report.Status = StatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		report.Status = StatusCanceled
		report.Error = err.Error()
	default:
		report.Status = StatusFailed
		report.Error = err.Error()
	}

	snap := p.Snapshot()
	report.Intervals = snap.Intervals
	report.Channels = make([]ChannelSummary, len(snap.Channels))
	for i, ch := range snap.Channels {
		report.Channels[i] = ChannelSummary{
			Name:      ch.Name,
			Samples:   ch.Len(),
			Anomalous: ch.Anomalous,
			Clamped:   ch.Clamped,
		}
	}
	if len(report.RejectedByReason) == 0 {
		report.RejectedByReason = nil
	}
}
