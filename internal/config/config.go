// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package config

import (
	"time"

	"github.com/tomtom215/harakiri/internal/detection"
	"github.com/tomtom215/harakiri/internal/divergence"
	"github.com/tomtom215/harakiri/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Detection DetectionConfig `koanf:"detection"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Store     StoreConfig     `koanf:"store"`
	Events    EventsConfig    `koanf:"events"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DetectionConfig configures the detection pipeline.
type DetectionConfig struct {
	// GapTolerance is the silence in seconds that closes an open interval.
	GapTolerance float64 `koanf:"gap_tolerance" validate:"finite,gte=0"`

	// ClampBound is the raw divergence above which the previous estimate is repeated.
	ClampBound float64 `koanf:"clamp_bound" validate:"finite,gt=0"`

	// Channels are matched against frame type tags in order.
	Channels []ChannelConfig `koanf:"channels" validate:"min=1,dive"`
}

// ChannelConfig configures one channel bundle.
type ChannelConfig struct {
	Name      string   `koanf:"name" validate:"required"`
	Tags      []string `koanf:"tags" validate:"min=1,dive,required"`
	AlphaFast float64  `koanf:"alpha_fast" validate:"finite,gt=0,lt=1,gtfield=AlphaSlow"`
	AlphaSlow float64  `koanf:"alpha_slow" validate:"finite,gt=0,lt=1"`
	Window    int      `koanf:"window" validate:"min=1"`
	Threshold float64  `koanf:"threshold" validate:"finite,gte=0"`
}

// AnalysisConfig configures the analysis runner.
type AnalysisConfig struct {
	// Strict aborts a run on the first rejected frame instead of skipping it.
	Strict bool `koanf:"strict"`

	// FrameBuffer is the channel capacity between the decoding goroutine and
	// the pipeline. 0 runs decoding inline.
	FrameBuffer int `koanf:"frame_buffer" validate:"min=0,max=1048576"`
}

// StoreConfig configures the BadgerDB report store.
type StoreConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// EventsConfig configures interval publication over watermill.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Topic   string `koanf:"topic" validate:"required"`
	// Buffer is the output channel buffer per subscriber.
	Buffer int64 `koanf:"buffer" validate:"min=0"`
}

// ServerConfig configures the HTTP API used by "serve".
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`

	// CORSOrigins lists allowed browser origins. Empty disables CORS.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRequests per RateLimitWindow per client IP. Zero disables
	// rate limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"required_unless=RateLimitRequests 0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is the output format: json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes file:line in log output.
	Caller bool `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. These are applied
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			GapTolerance: detection.DefaultGapTolerance,
			ClampBound:   divergence.DefaultClampBound,
			Channels: []ChannelConfig{
				fromDetection(detection.DefaultKeyframeConfig()),
				fromDetection(detection.DefaultPredictedConfig()),
			},
		},
		Analysis: AnalysisConfig{
			Strict:      false,
			FrameBuffer: 256,
		},
		Store: StoreConfig{
			Enabled:  false,
			Path:     "/data/harakiri",
			InMemory: false,
		},
		Events: EventsConfig{
			Enabled: false,
			Topic:   "anomaly.intervals",
			Buffer:  64,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            3858,
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 10 * time.Second,

			CORSOrigins:       []string{},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

func fromDetection(c detection.ChannelConfig) ChannelConfig {
	return ChannelConfig{
		Name:      c.Name,
		Tags:      append([]string(nil), c.Tags...),
		AlphaFast: c.AlphaFast,
		AlphaSlow: c.AlphaSlow,
		Window:    c.Window,
		Threshold: c.Threshold,
	}
}

// Default returns the default configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// DetectionConfig converts the detection section into a pipeline config.
func (c *Config) DetectionConfig() detection.Config {
	out := detection.Config{
		GapTolerance: c.Detection.GapTolerance,
		ClampBound:   c.Detection.ClampBound,
		Channels:     make([]detection.ChannelConfig, len(c.Detection.Channels)),
	}
	for i, ch := range c.Detection.Channels {
		out.Channels[i] = detection.ChannelConfig{
			Name:      ch.Name,
			Tags:      append([]string(nil), ch.Tags...),
			AlphaFast: ch.AlphaFast,
			AlphaSlow: ch.AlphaSlow,
			Window:    ch.Window,
			Threshold: ch.Threshold,
		}
	}
	return out
}

// LoggingConfig converts the logging section for logging.Init.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	return cfg
}
