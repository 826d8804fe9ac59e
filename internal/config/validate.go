// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package config

import (
	"fmt"

	"github.com/tomtom215/harakiri/internal/validation"
)

// Validate checks field constraints, then the rules that span fields.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	if err := c.validateChannels(); err != nil {
		return err
	}
	return c.validateStore()
}

// validateChannels requires unique channel names and that no tag routes to
// two channels.
func (c *Config) validateChannels() error {
	names := make(map[string]bool, len(c.Detection.Channels))
	owners := make(map[string]string)
	for i, ch := range c.Detection.Channels {
		if names[ch.Name] {
			return fmt.Errorf("detection.channels[%d].name %q is used by another channel", i, ch.Name)
		}
		names[ch.Name] = true

		for _, tag := range ch.Tags {
			if owner, ok := owners[tag]; ok {
				return fmt.Errorf("detection.channels[%d].tags: tag %q already routes to channel %q", i, tag, owner)
			}
			owners[tag] = ch.Name
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.Enabled && !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when store.enabled=true and store.in_memory=false")
	}
	return nil
}
