// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package services

import (
	"context"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/harakiri/internal/analysis"
	"github.com/tomtom215/harakiri/internal/detection"
	"github.com/tomtom215/harakiri/internal/logging"
	"github.com/tomtom215/harakiri/internal/source"
)

// saveTimeout bounds the report save after a run, including canceled runs.
const saveTimeout = 5 * time.Second

// ReportSaver persists finished reports. *store.Store satisfies it.
type ReportSaver interface {
	Save(ctx context.Context, r *analysis.Report) error
}

// AnalysisService runs one analysis of src through pipeline.
type AnalysisService struct {
	src      source.Source
	pipeline *detection.Pipeline
	opts     analysis.Options
	saver    ReportSaver

	mu     sync.Mutex
	ran    bool
	report *analysis.Report
	err    error
	done   chan struct{}
}

// NewAnalysisService creates the service. saver may be nil.
func NewAnalysisService(src source.Source, pipeline *detection.Pipeline, opts analysis.Options, saver ReportSaver) *AnalysisService {
	return &AnalysisService{
		src:      src,
		pipeline: pipeline,
		opts:     opts,
		saver:    saver,
		done:     make(chan struct{}),
	}
}

// Serve implements suture.Service. The run happens once; later calls return
// suture.ErrDoNotRestart immediately.
func (s *AnalysisService) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return suture.ErrDoNotRestart
	}
	s.ran = true
	s.mu.Unlock()

	log := logging.WithComponent("analysis")
	report, err := analysis.Run(ctx, s.src, s.pipeline, s.opts)

	if s.saver != nil && report != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		if serr := s.saver.Save(saveCtx, report); serr != nil {
			log.Error().Err(serr).Str("report_id", report.ID).Msg("Failed to save analysis report")
		} else {
			log.Info().Str("report_id", report.ID).Msg("Analysis report saved")
		}
		cancel()
	}

	s.mu.Lock()
	s.report, s.err = report, err
	s.mu.Unlock()
	close(s.done)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return suture.ErrDoNotRestart
}

// Done is closed when the run has ended and the report is saved.
func (s *AnalysisService) Done() <-chan struct{} {
	return s.done
}

// Result returns the report and run error. Both are nil before Done.
func (s *AnalysisService) Result() (*analysis.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report, s.err
}

// String names the service in supervisor logs.
func (s *AnalysisService) String() string {
	return "analysis:" + source.NameOf(s.src)
}
