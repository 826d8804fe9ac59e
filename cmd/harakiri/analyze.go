// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/urfave/cli"

	"github.com/tomtom215/harakiri/internal/analysis"
	"github.com/tomtom215/harakiri/internal/detection"
	"github.com/tomtom215/harakiri/internal/export"
	"github.com/tomtom215/harakiri/internal/logging"
	"github.com/tomtom215/harakiri/internal/source"
	"github.com/tomtom215/harakiri/internal/store"
)

func analyzeCommand(st *appState) cli.Command {
	return cli.Command{
		Name:      "analyze",
		Usage:     "analyze an NDJSON frame stream and write the anomaly intervals",
		ArgsUsage: "<frames.ndjson|->",
		Flags:     analyzeFlags(),
		Action:    st.analyze,
	}
}

func (st *appState) analyze(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	input, closeInput, err := st.openInput(c.Args().First())
	if err != nil {
		return err
	}
	defer closeInput()

	pipeline, err := detection.NewPipeline(st.cfg.DetectionConfig())
	if err != nil {
		return err
	}

	opts := analysis.Options{Strict: st.cfg.Analysis.Strict || c.Bool(strictFlag)}
	src := source.Buffered(ctx, input, st.cfg.Analysis.FrameBuffer)
	report, runErr := analysis.Run(ctx, src, pipeline, opts)

	if st.cfg.Store.Enabled {
		if err := saveReport(st.cfg.Store.Path, st.cfg.Store.InMemory, report); err != nil {
			logging.Error().Err(err).Str("report_id", report.ID).Msg("Failed to save analysis report")
		}
	}

	if runErr != nil {
		return fmt.Errorf("analysis %s: %w", report.Status, runErr)
	}
	return st.writeOutputs(c, pipeline.Snapshot(), report)
}

// openInput opens the frame source named by arg. Empty or "-" is stdin.
func (st *appState) openInput(arg string) (source.Source, func(), error) {
	if arg == "" || arg == stdinArg {
		return source.NewNDJSONSource("stdin", st.stdin), func() {}, nil
	}
	f, err := os.Open(arg) // #nosec G304 -- user-supplied input path
	if err != nil {
		return nil, nil, fmt.Errorf("open frames: %w", err)
	}
	closeFn := func() {
		if err := f.Close(); err != nil {
			logging.Warn().Err(err).Str("path", arg).Msg("Failed to close input")
		}
	}
	return source.NewNDJSONSource(filepath.Base(arg), f), closeFn, nil
}

func saveReport(path string, inMemory bool, report *analysis.Report) error {
	s, err := store.Open(store.Config{Path: path, InMemory: inMemory})
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close report store")
		}
	}()
	return s.Save(context.Background(), report)
}

func (st *appState) writeOutputs(c *cli.Context, snap detection.Snapshot, report *analysis.Report) error {
	if prefix := c.String(csvPrefixFlag); prefix != "" {
		for _, ch := range snap.Channels {
			if err := writeFile(prefix+ch.Name+".csv", func(w io.Writer) error {
				return export.WriteAnalysisCSV(w, ch)
			}); err != nil {
				return err
			}
			if !c.Bool(seriesFlag) {
				continue
			}
			for _, col := range []string{export.ColumnValue, export.ColumnFast, export.ColumnSlow, export.ColumnDivergence} {
				if err := writeFile(prefix+ch.Name+"_"+col+".csv", func(w io.Writer) error {
					return export.WriteSeriesCSV(w, ch, col, "")
				}); err != nil {
					return err
				}
			}
		}
	}

	if path := c.String(anomaliesFlag); path != "" {
		if err := writeFile(path, func(w io.Writer) error {
			return export.WriteIntervalsJSON(w, report.Intervals)
		}); err != nil {
			return err
		}
	}

	if path := c.String(reportFlag); path != "" {
		if err := writeFile(path, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}); err != nil {
			return err
		}
	}

	if !c.Bool(quietFlag) {
		return export.WriteAnomalyListing(st.stdout, report.Intervals)
	}
	return nil
}

// writeFile creates path and closes it after write, reporting either error.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path) // #nosec G304 -- user-supplied output path
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logging.Debug().Str("path", path).Msg("Output written")
	return nil
}
