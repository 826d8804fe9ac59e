// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli"

	"github.com/tomtom215/harakiri/internal/analysis"
	"github.com/tomtom215/harakiri/internal/api"
	"github.com/tomtom215/harakiri/internal/detection"
	"github.com/tomtom215/harakiri/internal/events"
	"github.com/tomtom215/harakiri/internal/export"
	"github.com/tomtom215/harakiri/internal/logging"
	"github.com/tomtom215/harakiri/internal/source"
	"github.com/tomtom215/harakiri/internal/store"
	"github.com/tomtom215/harakiri/internal/supervisor"
	"github.com/tomtom215/harakiri/internal/supervisor/services"
)

func serveCommand(st *appState) cli.Command {
	return cli.Command{
		Name:      "serve",
		Usage:     "analyze a frame stream and serve its live state over HTTP",
		ArgsUsage: "<frames.ndjson|->",
		Flags:     serveFlags(),
		Action:    st.serve,
	}
}

//nolint:gocyclo // sequential wiring of optional components
func (st *appState) serve(c *cli.Context) error {
	cfg := st.cfg
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	input, closeInput, err := st.openInput(c.Args().First())
	if err != nil {
		return err
	}
	defer closeInput()

	pipeline, err := detection.NewPipeline(cfg.DetectionConfig())
	if err != nil {
		return err
	}

	// Interface values stay nil when a component is disabled.
	var (
		reports api.ReportStore
		saver   services.ReportSaver
	)
	if cfg.Store.Enabled {
		s, err := store.Open(store.Config{Path: cfg.Store.Path, InMemory: cfg.Store.InMemory})
		if err != nil {
			return err
		}
		defer func() {
			if err := s.Close(); err != nil {
				logging.Warn().Err(err).Msg("Failed to close report store")
			}
		}()
		reports, saver = s, s
		logging.Info().Str("path", cfg.Store.Path).Bool("in_memory", cfg.Store.InMemory).Msg("Report store opened")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	if cfg.Events.Enabled {
		evCfg := events.Config{
			Topic:      cfg.Events.Topic,
			Source:     source.NameOf(input),
			Buffer:     cfg.Events.Buffer,
			WaitForAck: true,
		}
		pubsub := events.NewGoChannel(evCfg)
		publisher := events.NewPublisher(pubsub, evCfg)
		defer func() {
			if err := publisher.Close(); err != nil {
				logging.Warn().Err(err).Msg("Failed to close event publisher")
			}
		}()
		pipeline.RegisterNotifier(publisher)

		// Subscribed before the tree starts, and acked before Publish
		// returns, so the listing is complete when the analysis is done.
		intervalLog := services.NewIntervalLogService(pubsub, publisher.Topic(), st.stdout)
		if err := intervalLog.Subscribe(ctx); err != nil {
			return err
		}
		tree.AddMessagingService(intervalLog)
		logging.Info().Str("topic", publisher.Topic()).Msg("Interval events enabled")
	}

	opts := analysis.Options{Strict: cfg.Analysis.Strict || c.Bool(strictFlag)}
	analysisSvc := services.NewAnalysisService(
		source.Buffered(ctx, input, cfg.Analysis.FrameBuffer), pipeline, opts, saver)
	tree.AddAnalysisService(analysisSvc)

	server := &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: api.NewRouter(api.RouterConfig{
			CORSOrigins:       cfg.Server.CORSOrigins,
			RateLimitRequests: cfg.Server.RateLimitRequests,
			RateLimitWindow:   cfg.Server.RateLimitWindow,
		}, api.NewHandler(pipeline, reports)),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if c.Bool(exitOnFinishFlag) {
		go func() {
			select {
			case <-analysisSvc.Done():
				logging.Info().Msg("Analysis finished, shutting down")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	report, runErr := analysisSvc.Result()
	if report == nil {
		logging.Info().Msg("Stopped before the analysis ran")
		return nil
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if cfg.Events.Enabled {
		// Intervals were already listed by the interval log service.
		return nil
	}
	return export.WriteAnomalyListing(st.stdout, report.Intervals)
}
