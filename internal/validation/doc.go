// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and names fields after their koanf, json or query tags, so a
// failure reads the way the configuration key is written:
//
//	detection.channels[0].window must be at least 1
//
// # Custom Validators
//
//	finite - float is neither NaN nor infinite
//
// # Usage
//
//	type ChannelConfig struct {
//	    Window    int     `koanf:"window" validate:"min=1"`
//	    Threshold float64 `koanf:"threshold" validate:"finite,gte=0"`
//	}
//
//	if verr := validation.ValidateStruct(&cfg); verr != nil {
//	    return fmt.Errorf("invalid configuration: %w", verr)
//	}
//
// Used by internal/config on load and by internal/api for query parameters.
package validation
