// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package detection

import (
	"fmt"
	"math"
	"slices"
)

// Tracker merges anomalous samples from all channels into intervals.
//
// It is a two-state machine. Idle: no interval is open. Open: one interval is
// being extended. Every observed sample first runs the close check
// (ts > end + gap closes the open interval), then anomalous samples open a
// new interval or extend the open one.
type Tracker struct {
	gap    float64
	order  map[string]int // channel -> configuration index, for stable Channels
	open   bool
	cur    Interval
	closed []Interval
}

// NewTracker creates a tracker with the given gap tolerance in seconds.
// channelOrder fixes the order of Interval.Channels; unknown channels sort last.
func NewTracker(gap float64, channelOrder ...string) (*Tracker, error) {
	if gap < 0 || math.IsNaN(gap) || math.IsInf(gap, 0) {
		return nil, fmt.Errorf("%w: gap_tolerance %v", ErrInvalidConfig, gap)
	}
	order := make(map[string]int, len(channelOrder))
	for i, name := range channelOrder {
		order[name] = i
	}
	return &Tracker{gap: gap, order: order}, nil
}

// Observe feeds one classified sample. It returns the interval finalized by
// this sample, if any, and whether the sample opened a new interval.
func (t *Tracker) Observe(ts float64, channel string, anomalous bool) (*Interval, bool) {
	var closed *Interval
	if t.open && ts > t.cur.EndSecond+t.gap {
		iv := t.finalize()
		closed = &iv
	}

	if !anomalous {
		return closed, false
	}

	if !t.open {
		t.open = true
		t.cur = Interval{StartSecond: ts, EndSecond: ts}
		t.addSample(channel)
		return closed, true
	}

	if ts > t.cur.EndSecond {
		t.cur.EndSecond = ts
	}
	t.addSample(channel)
	return closed, false
}

// Flush finalizes the open interval, if any, and returns it.
func (t *Tracker) Flush() (Interval, bool) {
	if !t.open {
		return Interval{}, false
	}
	return t.finalize(), true
}

// IsOpen reports whether an interval is currently open.
func (t *Tracker) IsOpen() bool {
	return t.open
}

// Provisional returns a copy of the open interval, if any.
func (t *Tracker) Provisional() (Interval, bool) {
	if !t.open {
		return Interval{}, false
	}
	return t.cur.clone(), true
}

// Intervals returns a copy of the finalized intervals in closing order.
func (t *Tracker) Intervals() []Interval {
	out := make([]Interval, len(t.closed))
	for i, iv := range t.closed {
		out[i] = iv.clone()
	}
	return out
}

func (t *Tracker) finalize() Interval {
	iv := t.cur
	t.closed = append(t.closed, iv)
	t.open = false
	t.cur = Interval{}
	return iv.clone()
}

func (t *Tracker) addSample(channel string) {
	t.cur.Samples++
	if slices.Contains(t.cur.Channels, channel) {
		return
	}
	t.cur.Channels = append(t.cur.Channels, channel)
	slices.SortStableFunc(t.cur.Channels, func(a, b string) int {
		return t.rank(a) - t.rank(b)
	})
}

func (t *Tracker) rank(channel string) int {
	if i, ok := t.order[channel]; ok {
		return i
	}
	return len(t.order)
}
