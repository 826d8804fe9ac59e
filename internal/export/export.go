// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package export writes pipeline snapshots and anomaly intervals to CSV,
// JSON and plain-text listings.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/harakiri/internal/detection"
)

// ErrUnknownColumn is returned for a column WriteSeriesCSV cannot select.
var ErrUnknownColumn = errors.New("unknown series column")

// Series columns accepted by WriteSeriesCSV.
const (
	ColumnValue      = "value"
	ColumnFast       = "fast"
	ColumnSlow       = "slow"
	ColumnDivergence = "divergence"
)

// TimesHeader names the timestamp column.
const TimesHeader = "times"

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func column(ch detection.ChannelSnapshot, name string) ([]float64, error) {
	switch name {
	case ColumnValue:
		return ch.Values, nil
	case ColumnFast:
		return ch.Fast, nil
	case ColumnSlow:
		return ch.Slow, nil
	case ColumnDivergence:
		return ch.Divergence, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
}

// WriteSeriesCSV writes one column of a channel against its timestamps.
// The header is "times,<header>"; header defaults to the channel name.
func WriteSeriesCSV(w io.Writer, ch detection.ChannelSnapshot, col, header string) error {
	values, err := column(ch, col)
	if err != nil {
		return err
	}
	if header == "" {
		header = ch.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{TimesHeader, header}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, ts := range ch.Timestamps {
		if err := cw.Write([]string{formatFloat(ts), formatFloat(values[i])}); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}
	return nil
}

// WriteAnalysisCSV writes every series of a channel, one row per sample.
func WriteAnalysisCSV(w io.Writer, ch detection.ChannelSnapshot) error {
	cw := csv.NewWriter(w)
	header := []string{TimesHeader, ColumnValue, ColumnFast, ColumnSlow, ColumnDivergence}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, ts := range ch.Timestamps {
		record := []string{
			formatFloat(ts),
			formatFloat(ch.Values[i]),
			formatFloat(ch.Fast[i]),
			formatFloat(ch.Slow[i]),
			formatFloat(ch.Divergence[i]),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}
	return nil
}

// AnomalyRecord is the JSON form of one interval.
type AnomalyRecord struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// AnomalyFile is the JSON document written by WriteIntervalsJSON.
type AnomalyFile struct {
	Anomalies []AnomalyRecord `json:"anomalies"`
}

func roundMillis(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// WriteIntervalsJSON writes intervals as {"anomalies":[{"start":..,"end":..}]}
// with seconds rounded to milliseconds.
func WriteIntervalsJSON(w io.Writer, intervals []detection.Interval) error {
	doc := AnomalyFile{Anomalies: make([]AnomalyRecord, len(intervals))}
	for i, iv := range intervals {
		doc.Anomalies[i] = AnomalyRecord{
			Start: roundMillis(iv.StartSecond),
			End:   roundMillis(iv.EndSecond),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode anomalies: %w", err)
	}
	return nil
}

// FormatClock formats whole seconds as m:ss. Negative or non-finite input
// formats as 0:00.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// WriteAnomalyListing writes one human-readable line per interval.
//
//	Anomaly: #start 1:05 #end 1:07
func WriteAnomalyListing(w io.Writer, intervals []detection.Interval) error {
	for _, iv := range intervals {
		if _, err := fmt.Fprintf(w, "Anomaly: #start %s #end %s\n", FormatClock(iv.StartSecond), FormatClock(iv.EndSecond)); err != nil {
			return fmt.Errorf("write listing: %w", err)
		}
	}
	return nil
}
