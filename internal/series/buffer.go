// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package series provides the append-only time series buffer that holds the
// raw (timestamp, value) samples of one frame channel.
package series

import (
	"errors"
	"fmt"
)

// ErrOutOfOrder is returned when a sample is older than the last appended one.
var ErrOutOfOrder = errors.New("timestamp out of order")

// Sample is one (timestamp, value) observation.
type Sample struct {
	Timestamp float64 `json:"ts"`
	Value     float64 `json:"value"`
}

// Buffer is an append-only, timestamp-ordered store of samples.
// Timestamps are non-decreasing; ties are permitted.
//
// Buffer is not safe for concurrent use. The owning pipeline serializes access.
type Buffer struct {
	name       string
	timestamps []float64
	values     []float64
}

// NewBuffer creates an empty buffer. The name is only used in error messages.
func NewBuffer(name string) *Buffer {
	return &Buffer{name: name}
}

// Name returns the buffer name.
func (b *Buffer) Name() string {
	return b.name
}

// Accepts reports whether a sample with the given timestamp could be appended.
func (b *Buffer) Accepts(timestamp float64) bool {
	n := len(b.timestamps)
	return n == 0 || timestamp >= b.timestamps[n-1]
}

// Add appends a sample. It returns ErrOutOfOrder, leaving the buffer
// untouched, when timestamp is earlier than the last appended timestamp.
func (b *Buffer) Add(timestamp, value float64) error {
	if !b.Accepts(timestamp) {
		return fmt.Errorf("%s: %w: %.6f < %.6f", b.name, ErrOutOfOrder, timestamp, b.timestamps[len(b.timestamps)-1])
	}
	b.timestamps = append(b.timestamps, timestamp)
	b.values = append(b.values, value)
	return nil
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	return len(b.timestamps)
}

// At returns the i-th sample (0-based). It panics if i is out of range,
// like slice indexing.
func (b *Buffer) At(i int) Sample {
	return Sample{Timestamp: b.timestamps[i], Value: b.values[i]}
}

// Last returns the most recent sample, or false when the buffer is empty.
func (b *Buffer) Last() (Sample, bool) {
	n := len(b.timestamps)
	if n == 0 {
		return Sample{}, false
	}
	return b.At(n - 1), true
}

// Timestamps returns a copy of all timestamps in order.
func (b *Buffer) Timestamps() []float64 {
	return append([]float64(nil), b.timestamps...)
}

// Values returns a copy of all values in order.
func (b *Buffer) Values() []float64 {
	return append([]float64(nil), b.values...)
}

// Samples returns a copy of all samples in order.
func (b *Buffer) Samples() []Sample {
	out := make([]Sample, len(b.timestamps))
	for i := range b.timestamps {
		out[i] = Sample{Timestamp: b.timestamps[i], Value: b.values[i]}
	}
	return out
}
