// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package detection

import (
	"fmt"
	"math"
)

// Classifier flags a sample as anomalous when the latest divergence estimate
// is strictly above the channel threshold. It holds no state.
type Classifier struct {
	threshold float64
}

// NewClassifier creates a classifier. The threshold must be finite and
// non-negative.
func NewClassifier(threshold float64) (Classifier, error) {
	if threshold < 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return Classifier{}, fmt.Errorf("%w: threshold %v", ErrInvalidConfig, threshold)
	}
	return Classifier{threshold: threshold}, nil
}

// Threshold returns the configured threshold.
func (c Classifier) Threshold() float64 {
	return c.threshold
}

// Classify reports whether one divergence estimate is anomalous.
func (c Classifier) Classify(estimate float64) bool {
	return estimate > c.threshold
}

// IsAnomalous classifies the last element of a divergence series.
// An empty series is never anomalous.
func (c Classifier) IsAnomalous(divergenceSeries []float64) bool {
	if len(divergenceSeries) == 0 {
		return false
	}
	return c.Classify(divergenceSeries[len(divergenceSeries)-1])
}
