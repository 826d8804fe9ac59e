// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package smoothing implements the pair of exponential moving averages that
// track one channel's values at a fast and a slow decay rate.
package smoothing

import (
	"errors"
	"fmt"
)

// ErrInvalidAlpha is returned for decay constants outside (0,1) or with
// fast <= slow.
var ErrInvalidAlpha = errors.New("invalid smoothing constant")

// ema is a single exponential moving average. The first value seeds it.
type ema struct {
	alpha       float64
	value       float64
	initialized bool
}

func (e *ema) update(v float64) float64 {
	if !e.initialized {
		e.initialized = true
		e.value = v
		return e.value
	}
	e.value = e.alpha*v + (1-e.alpha)*e.value
	return e.value
}

// Dual holds two independent EMAs over the same input and keeps both output
// series, index-aligned with the inputs.
type Dual struct {
	fast ema
	slow ema

	fastSeries []float64
	slowSeries []float64
}

// NewDual creates a dual smoother. Both constants must lie in (0,1) and
// alphaFast must be greater than alphaSlow.
func NewDual(alphaFast, alphaSlow float64) (*Dual, error) {
	if !(alphaFast > 0 && alphaFast < 1) {
		return nil, fmt.Errorf("%w: alpha_fast=%v must be in (0,1)", ErrInvalidAlpha, alphaFast)
	}
	if !(alphaSlow > 0 && alphaSlow < 1) {
		return nil, fmt.Errorf("%w: alpha_slow=%v must be in (0,1)", ErrInvalidAlpha, alphaSlow)
	}
	if alphaFast <= alphaSlow {
		return nil, fmt.Errorf("%w: alpha_fast=%v must exceed alpha_slow=%v", ErrInvalidAlpha, alphaFast, alphaSlow)
	}
	return &Dual{
		fast: ema{alpha: alphaFast},
		slow: ema{alpha: alphaSlow},
	}, nil
}

// Add absorbs a value and returns the new fast and slow outputs.
func (d *Dual) Add(value float64) (fast, slow float64) {
	fast = d.fast.update(value)
	slow = d.slow.update(value)
	d.fastSeries = append(d.fastSeries, fast)
	d.slowSeries = append(d.slowSeries, slow)
	return fast, slow
}

// Len returns the number of absorbed values.
func (d *Dual) Len() int {
	return len(d.fastSeries)
}

// Warm reports whether at least one value has been absorbed.
func (d *Dual) Warm() bool {
	return d.fast.initialized
}

// Current returns the latest fast and slow outputs.
// Both are zero before the first Add.
func (d *Dual) Current() (fast, slow float64) {
	return d.fast.value, d.slow.value
}

// Alphas returns the fast and slow decay constants.
func (d *Dual) Alphas() (fast, slow float64) {
	return d.fast.alpha, d.slow.alpha
}

// Fast returns a copy of the fast output series.
func (d *Dual) Fast() []float64 {
	return append([]float64(nil), d.fastSeries...)
}

// Slow returns a copy of the slow output series.
func (d *Dual) Slow() []float64 {
	return append([]float64(nil), d.slowSeries...)
}
