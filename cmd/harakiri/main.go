// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package main is the harakiri command.
//
// harakiri reads per-frame size records of a compressed video stream, one
// NDJSON record per frame, and reports the time intervals whose frame sizes
// diverge from their long-run trend:
//
//	ffprobe ... | frames2ndjson | harakiri analyze --anomalies out.json -
//	harakiri serve --exit-on-finish frames.ndjson
//
// "analyze" runs once and writes the results. "serve" runs the same analysis
// under a supervisor tree and exposes its live state over HTTP until
// interrupted.
//
// Configuration is loaded with koanf from defaults, an optional YAML file and
// HARAKIRI_* environment variables, in increasing precedence.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"github.com/tomtom215/harakiri/internal/config"
	"github.com/tomtom215/harakiri/internal/logging"
)

var version = "0.1.0"

func main() {
	app := buildApp(os.Stdin, os.Stdout)
	if err := app.Run(os.Args); err != nil {
		logging.Fatal().Err(err).Msg("harakiri failed")
	}
}

// appState is shared by the commands of one app run.
type appState struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
}

func buildApp(stdin io.Reader, stdout io.Writer) *cli.App {
	st := &appState{stdin: stdin, stdout: stdout}

	app := cli.NewApp()
	app.Name = "harakiri"
	app.Usage = "detect frame-size anomalies in compressed video streams"
	app.Version = version
	app.Writer = stdout

	app.Flags = globalFlags()
	app.Commands = []cli.Command{
		analyzeCommand(st),
		serveCommand(st),
	}
	app.Before = st.setup

	return app
}

// setup loads configuration and initializes logging before any command.
func (st *appState) setup(c *cli.Context) error {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String(configFlag); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if level := c.String(logLevelFlag); level != "" {
		if !logging.ValidLevel(level) {
			return fmt.Errorf("invalid --%s %q", logLevelFlag, level)
		}
		cfg.Logging.Level = level
	}
	logging.Init(cfg.LoggingConfig())

	st.cfg = cfg
	return nil
}
