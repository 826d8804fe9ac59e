// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package config loads application configuration with Koanf v2.
//
// Sources, lowest to highest precedence:
//
//	1. Built-in defaults (defaultConfig)
//	2. YAML file: $CONFIG_PATH, ./harakiri.yaml, /etc/harakiri/config.yaml
//	3. HARAKIRI_* environment variables
//
// # Config File
//
//	detection:
//	  gap_tolerance: 1.0
//	  clamp_bound: 1000
//	  channels:
//	    - name: keyframe
//	      tags: [I]
//	      alpha_fast: 0.4
//	      alpha_slow: 0.03
//	      window: 3
//	      threshold: 0.015
//	    - name: predicted
//	      tags: [P, B]
//	      alpha_fast: 0.3
//	      alpha_slow: 0.01
//	      window: 15
//	      threshold: 0.012
//	store:
//	  enabled: true
//	  path: /data/harakiri
//	events:
//	  enabled: true
//	  topic: anomaly.intervals
//	server:
//	  port: 3858
//
// # Environment Variables
//
//	HARAKIRI_GAP_TOLERANCE     detection.gap_tolerance
//	HARAKIRI_CLAMP_BOUND       detection.clamp_bound
//	HARAKIRI_STRICT            analysis.strict
//	HARAKIRI_FRAME_BUFFER      analysis.frame_buffer
//	HARAKIRI_STORE_ENABLED     store.enabled
//	HARAKIRI_STORE_PATH        store.path
//	HARAKIRI_STORE_IN_MEMORY   store.in_memory
//	HARAKIRI_EVENTS_ENABLED    events.enabled
//	HARAKIRI_EVENTS_TOPIC      events.topic
//	HARAKIRI_EVENTS_BUFFER     events.buffer
//	HARAKIRI_HTTP_HOST         server.host
//	HARAKIRI_HTTP_PORT         server.port
//	HARAKIRI_HTTP_READ_TIMEOUT server.read_timeout
//	HARAKIRI_LOG_LEVEL         logging.level
//	HARAKIRI_LOG_FORMAT        logging.format
//	HARAKIRI_LOG_CALLER        logging.caller
//
// # Validation
//
// Field constraints are declared as validate tags and checked through
// internal/validation. Validate then checks unique channel names, that every
// tag routes to one channel, and the store path.
package config
