// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package divergence estimates short-term disagreement between a fast and a
// slow smoother as the mean absolute gap over a bounded window of recent
// sample pairs.
package divergence

import (
	"errors"
	"fmt"
	"math"
)

// DefaultClampBound is the mean gap above which an estimate is treated as an
// artifact and replaced by the previous estimate.
const DefaultClampBound = 1000.0

// ErrInvalidWindow is returned for a window size below 1.
var ErrInvalidWindow = errors.New("invalid divergence window")

// ErrInvalidClamp is returned for a non-positive or non-finite clamp bound.
var ErrInvalidClamp = errors.New("invalid clamp bound")

// Estimate is the outcome of one Add call.
type Estimate struct {
	// Value is the estimate appended to the series.
	Value float64
	// Raw is the computed window mean before clamping.
	Raw float64
	// Window is the number of pairs averaged.
	Window int
	// Clamped is true when Raw exceeded the bound and Value repeats the
	// previous estimate.
	Clamped bool
}

// Estimator keeps the last W absolute gaps in a circular buffer and the full
// divergence series, one value per Add.
//
// Estimator is not safe for concurrent use.
type Estimator struct {
	window int
	clamp  float64

	gaps  []float64 // circular buffer of |fast-slow|, capacity window
	next  int       // write position in gaps
	count int       // pairs seen

	series []float64
}

// New creates an estimator over a window of size window (>= 1).
// A zero clamp selects DefaultClampBound.
func New(window int, clamp float64) (*Estimator, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}
	if clamp == 0 {
		clamp = DefaultClampBound
	}
	if clamp < 0 || math.IsNaN(clamp) || math.IsInf(clamp, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClamp, clamp)
	}
	return &Estimator{
		window: window,
		clamp:  clamp,
		gaps:   make([]float64, window),
	}, nil
}

// Add records one index-aligned (fast, slow) pair and appends the resulting
// estimate to the series.
func (e *Estimator) Add(fast, slow float64) Estimate {
	e.gaps[e.next] = math.Abs(fast - slow)
	e.next = (e.next + 1) % e.window
	e.count++

	w := e.count
	if w > e.window {
		w = e.window
	}

	// Walk back from the newest gap; summing fresh each time keeps the
	// estimate free of running-sum drift.
	var sum float64
	idx := e.next
	for i := 0; i < w; i++ {
		idx = (idx - 1 + e.window) % e.window
		sum += e.gaps[idx]
	}
	raw := sum / float64(w)

	est := Estimate{Value: raw, Raw: raw, Window: w}
	if raw > e.clamp && len(e.series) > 0 {
		est.Value = e.series[len(e.series)-1]
		est.Clamped = true
	}
	e.series = append(e.series, est.Value)
	return est
}

// Len returns the number of estimates.
func (e *Estimator) Len() int {
	return len(e.series)
}

// Last returns the most recent estimate, or false when none exist.
func (e *Estimator) Last() (float64, bool) {
	if len(e.series) == 0 {
		return 0, false
	}
	return e.series[len(e.series)-1], true
}

// Window returns the configured window size.
func (e *Estimator) Window() int {
	return e.window
}

// Series returns a copy of the divergence series.
func (e *Estimator) Series() []float64 {
	return append([]float64(nil), e.series...)
}
