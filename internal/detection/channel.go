// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package detection

import (
	"fmt"

	"github.com/tomtom215/harakiri/internal/divergence"
	"github.com/tomtom215/harakiri/internal/series"
	"github.com/tomtom215/harakiri/internal/smoothing"
)

// channel bundles the per-channel state: raw samples, the dual smoother, the
// divergence estimator and the classifier.
type channel struct {
	cfg        ChannelConfig
	buffer     *series.Buffer
	smoother   *smoothing.Dual
	estimator  *divergence.Estimator
	classifier Classifier

	anomalous int
	clamped   int
}

func newChannel(cfg ChannelConfig, clampBound float64) (*channel, error) {
	smoother, err := smoothing.NewDual(cfg.AlphaFast, cfg.AlphaSlow)
	if err != nil {
		return nil, fmt.Errorf("%w: channel %q: %w", ErrInvalidConfig, cfg.Name, err)
	}
	estimator, err := divergence.New(cfg.Window, clampBound)
	if err != nil {
		return nil, fmt.Errorf("%w: channel %q: %w", ErrInvalidConfig, cfg.Name, err)
	}
	classifier, err := NewClassifier(cfg.Threshold)
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", cfg.Name, err)
	}

	cfg.Tags = append([]string(nil), cfg.Tags...)
	return &channel{
		cfg:        cfg,
		buffer:     series.NewBuffer(cfg.Name),
		smoother:   smoother,
		estimator:  estimator,
		classifier: classifier,
	}, nil
}

// sample is the per-channel outcome of one accepted frame.
type sample struct {
	fast, slow float64
	estimate   divergence.Estimate
	anomalous  bool
}

// add runs one frame through the bundle. The buffer is written first, so an
// out-of-order frame returns before the smoother or estimator are touched.
func (c *channel) add(ts, value float64) (sample, error) {
	if err := c.buffer.Add(ts, value); err != nil {
		return sample{}, err
	}
	fast, slow := c.smoother.Add(value)
	est := c.estimator.Add(fast, slow)
	anomalous := c.classifier.Classify(est.Value)

	if est.Clamped {
		c.clamped++
	}
	if anomalous {
		c.anomalous++
	}
	return sample{fast: fast, slow: slow, estimate: est, anomalous: anomalous}, nil
}

func (c *channel) snapshot() ChannelSnapshot {
	alphaFast, alphaSlow := c.smoother.Alphas()
	return ChannelSnapshot{
		Name:       c.cfg.Name,
		Tags:       append([]string(nil), c.cfg.Tags...),
		AlphaFast:  alphaFast,
		AlphaSlow:  alphaSlow,
		Window:     c.estimator.Window(),
		Threshold:  c.classifier.Threshold(),
		Timestamps: c.buffer.Timestamps(),
		Values:     c.buffer.Values(),
		Fast:       c.smoother.Fast(),
		Slow:       c.smoother.Slow(),
		Divergence: c.estimator.Series(),
		Anomalous:  c.anomalous,
		Clamped:    c.clamped,
	}
}
