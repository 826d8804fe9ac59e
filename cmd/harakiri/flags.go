// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package main

import (
	"strings"

	"github.com/urfave/cli"
)

const (
	configFlag   = "config"
	logLevelFlag = "log-level"

	strictFlag    = "strict"
	csvPrefixFlag = "csv-prefix"
	seriesFlag    = "series"
	anomaliesFlag = "anomalies"
	reportFlag    = "report"
	quietFlag     = "quiet"

	exitOnFinishFlag = "exit-on-finish"
)

// stdinArg names standard input as the frame source.
const stdinArg = "-"

func joinFlagNames(ids ...string) string { return strings.Join(ids, ", ") }

func globalFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   joinFlagNames(configFlag, "c"),
			Usage:  "path to the YAML config file (default: search harakiri.yaml, /etc/harakiri/config.yaml)",
			EnvVar: "CONFIG_PATH",
		},
		cli.StringFlag{
			Name:  logLevelFlag,
			Usage: "override logging.level: trace|debug|info|warn|error",
		},
	}
}

func addStrictFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.BoolFlag{
		Name:  strictFlag,
		Usage: "abort on the first rejected frame",
	})
}

func analyzeFlags() []cli.Flag {
	return addStrictFlag(
		cli.StringFlag{
			Name:  csvPrefixFlag,
			Usage: "write <prefix><channel>.csv with value, fast, slow and divergence columns",
		},
		cli.BoolFlag{
			Name:  seriesFlag,
			Usage: "with --csv-prefix, also write one times,<column> file per column",
		},
		cli.StringFlag{
			Name:  joinFlagNames(anomaliesFlag, "a"),
			Usage: "write the anomaly intervals as JSON to this path",
		},
		cli.StringFlag{
			Name:  reportFlag,
			Usage: "write the analysis report as JSON to this path",
		},
		cli.BoolFlag{
			Name:  joinFlagNames(quietFlag, "q"),
			Usage: "do not print the anomaly listing",
		},
	)
}

func serveFlags() []cli.Flag {
	return addStrictFlag(
		cli.BoolFlag{
			Name:  exitOnFinishFlag,
			Usage: "stop the server once the frame stream has been analyzed",
		},
	)
}
