// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

/*
Package supervisor runs the long-lived parts of "harakiri serve" under a
suture v4 supervisor tree.

	RootSupervisor ("harakiri")
	├── AnalysisSupervisor ("analysis-layer")
	│   └── AnalysisService
	├── MessagingSupervisor ("messaging-layer")
	│   └── IntervalLogService (if events are enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crash in the messaging layer does not stop the API from serving the
snapshot of a finished analysis. Supervisor events are logged through
sutureslog and the zerolog-backed slog handler:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAnalysisService(services.NewAnalysisService(src, pipeline, opts, reports))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)

Service implementations live in the services subpackage.
*/
package supervisor
