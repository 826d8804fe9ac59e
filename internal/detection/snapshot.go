// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package detection

// ChannelSnapshot is a read-only copy of one channel's series.
// Timestamps, Values, Fast, Slow and Divergence are index-aligned.
type ChannelSnapshot struct {
	Name      string   `json:"name"`
	Tags      []string `json:"tags"`
	AlphaFast float64  `json:"alpha_fast"`
	AlphaSlow float64  `json:"alpha_slow"`
	Window    int      `json:"window"`
	Threshold float64  `json:"threshold"`

	Timestamps []float64 `json:"timestamps"`
	Values     []float64 `json:"values"`
	Fast       []float64 `json:"fast"`
	Slow       []float64 `json:"slow"`
	Divergence []float64 `json:"divergence"`

	// Anomalous counts samples classified as anomalous.
	Anomalous int `json:"anomalous"`
	// Clamped counts estimates replaced by the outlier clamp.
	Clamped int `json:"clamped"`
}

// Len returns the number of samples in the snapshot.
func (c ChannelSnapshot) Len() int {
	return len(c.Timestamps)
}

// Snapshot is a read-only copy of the pipeline state.
type Snapshot struct {
	Channels  []ChannelSnapshot `json:"channels"`
	Intervals []Interval        `json:"intervals"`
	// Provisional is the still-open interval, if any.
	Provisional *Interval `json:"provisional,omitempty"`
	Finished    bool      `json:"finished"`
}

// Channel returns the snapshot of the named channel.
func (s Snapshot) Channel(name string) (ChannelSnapshot, bool) {
	for _, ch := range s.Channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return ChannelSnapshot{}, false
}

// AllIntervals returns the finalized intervals followed by the provisional
// one, if any.
func (s Snapshot) AllIntervals() []Interval {
	out := make([]Interval, 0, len(s.Intervals)+1)
	out = append(out, s.Intervals...)
	if s.Provisional != nil {
		out = append(out, *s.Provisional)
	}
	return out
}
