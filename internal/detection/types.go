// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package detection

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/tomtom215/harakiri/internal/divergence"
	"github.com/tomtom215/harakiri/internal/series"
)

// Channel names used by the default configuration.
const (
	ChannelKeyframe  = "keyframe"
	ChannelPredicted = "predicted"
)

// DefaultGapTolerance is the silence, in seconds, after which an open
// anomaly interval is closed.
const DefaultGapTolerance = 1.0

var (
	// ErrUnknownChannel is returned for a frame whose tag matches no channel.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrInvalidFrame is returned for non-finite timestamps and negative or
	// non-finite values.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrFinished is returned by Process after Finish.
	ErrFinished = errors.New("pipeline finished")

	// ErrInvalidConfig wraps every configuration error.
	ErrInvalidConfig = errors.New("invalid detection config")
)

// Frame is one unit from the external frame source.
type Frame struct {
	// Timestamp is in seconds since stream start.
	Timestamp float64 `json:"ts"`
	// Tag selects the channel, e.g. "I" or "P".
	Tag string `json:"type"`
	// Value is the non-negative feature magnitude, e.g. normalized size.
	Value float64 `json:"value"`
}

func (f Frame) validate() error {
	if math.IsNaN(f.Timestamp) || math.IsInf(f.Timestamp, 0) {
		return fmt.Errorf("%w: timestamp %v", ErrInvalidFrame, f.Timestamp)
	}
	if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) || f.Value < 0 {
		return fmt.Errorf("%w: value %v", ErrInvalidFrame, f.Value)
	}
	return nil
}

// Interval is a contiguous time range flagged as anomalous.
type Interval struct {
	StartSecond float64 `json:"start"`
	EndSecond   float64 `json:"end"`
	// Samples is the number of anomalous samples merged into the interval.
	Samples int `json:"samples"`
	// Channels lists, in configuration order, the channels that contributed.
	Channels []string `json:"channels"`
}

// Duration returns EndSecond - StartSecond.
func (iv Interval) Duration() float64 {
	return iv.EndSecond - iv.StartSecond
}

func (iv Interval) clone() Interval {
	iv.Channels = append([]string(nil), iv.Channels...)
	return iv
}

// ChannelConfig configures one channel bundle.
type ChannelConfig struct {
	Name      string   `json:"name"`
	Tags      []string `json:"tags"`
	AlphaFast float64  `json:"alpha_fast"`
	AlphaSlow float64  `json:"alpha_slow"`
	Window    int      `json:"window"`
	Threshold float64  `json:"threshold"`
}

// Config configures a Pipeline.
type Config struct {
	Channels     []ChannelConfig `json:"channels"`
	GapTolerance float64         `json:"gap_tolerance"`
	ClampBound   float64         `json:"clamp_bound"`
}

// DefaultKeyframeConfig returns the keyframe channel defaults.
func DefaultKeyframeConfig() ChannelConfig {
	return ChannelConfig{
		Name:      ChannelKeyframe,
		Tags:      []string{"I"},
		AlphaFast: 0.4,
		AlphaSlow: 0.03,
		Window:    3,
		Threshold: 0.015,
	}
}

// DefaultPredictedConfig returns the predicted-frame channel defaults.
func DefaultPredictedConfig() ChannelConfig {
	return ChannelConfig{
		Name:      ChannelPredicted,
		Tags:      []string{"P", "B"},
		AlphaFast: 0.3,
		AlphaSlow: 0.01,
		Window:    15,
		Threshold: 0.012,
	}
}

// DefaultConfig returns the two-channel keyframe/predicted configuration.
func DefaultConfig() Config {
	return Config{
		Channels:     []ChannelConfig{DefaultKeyframeConfig(), DefaultPredictedConfig()},
		GapTolerance: DefaultGapTolerance,
		ClampBound:   divergence.DefaultClampBound,
	}
}

// Validate checks the pipeline-level settings and channel name/tag
// uniqueness. Per-channel numeric checks happen when bundles are built.
func (c Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("%w: at least one channel is required", ErrInvalidConfig)
	}
	if c.GapTolerance < 0 || math.IsNaN(c.GapTolerance) || math.IsInf(c.GapTolerance, 0) {
		return fmt.Errorf("%w: gap_tolerance %v", ErrInvalidConfig, c.GapTolerance)
	}

	names := make(map[string]bool, len(c.Channels))
	tags := make(map[string]string)
	for _, ch := range c.Channels {
		if ch.Name == "" {
			return fmt.Errorf("%w: channel name is required", ErrInvalidConfig)
		}
		if names[ch.Name] {
			return fmt.Errorf("%w: duplicate channel %q", ErrInvalidConfig, ch.Name)
		}
		names[ch.Name] = true

		if len(ch.Tags) == 0 {
			return fmt.Errorf("%w: channel %q has no tags", ErrInvalidConfig, ch.Name)
		}
		for _, tag := range ch.Tags {
			if owner, ok := tags[tag]; ok {
				return fmt.Errorf("%w: tag %q used by %q and %q", ErrInvalidConfig, tag, owner, ch.Name)
			}
			tags[tag] = ch.Name
		}
	}
	return nil
}

// Notifier receives finalized anomaly intervals.
type Notifier interface {
	// Name returns the notifier name (e.g., "events", "metrics").
	Name() string

	// NotifyInterval delivers one finalized interval.
	NotifyInterval(ctx context.Context, interval Interval) error
}

// RejectReason maps a Process error to a short label for metrics and logs.
func RejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, series.ErrOutOfOrder):
		return "out_of_order"
	case errors.Is(err, ErrUnknownChannel):
		return "unknown_channel"
	case errors.Is(err, ErrInvalidFrame):
		return "invalid_frame"
	case errors.Is(err, ErrFinished):
		return "finished"
	default:
		return "other"
	}
}
