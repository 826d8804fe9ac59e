// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package detection

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/harakiri/internal/logging"
	"github.com/tomtom215/harakiri/internal/metrics"
)

// Pipeline routes frames to channel bundles and feeds every classification
// into the shared interval tracker.
type Pipeline struct {
	mu sync.RWMutex

	channels  []*channel
	byTag     map[string]*channel
	tracker   *Tracker
	notifiers []Notifier
	finished  bool
}

// Result describes the outcome of one processed frame.
type Result struct {
	Channel    string  `json:"channel"`
	Timestamp  float64 `json:"ts"`
	Value      float64 `json:"value"`
	Fast       float64 `json:"fast"`
	Slow       float64 `json:"slow"`
	Divergence float64 `json:"divergence"`
	Clamped    bool    `json:"clamped"`
	Anomalous  bool    `json:"anomalous"`
	// Opened is true when this frame opened a new interval.
	Opened bool `json:"opened"`
	// Closed is the interval finalized by this frame's close check.
	Closed *Interval `json:"closed,omitempty"`
}

// NewPipeline builds one bundle per configured channel. Configuration errors
// are reported here; a Pipeline never exists in an invalid configuration.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		names = append(names, ch.Name)
	}
	tracker, err := NewTracker(cfg.GapTolerance, names...)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		byTag:   make(map[string]*channel),
		tracker: tracker,
	}
	for _, chCfg := range cfg.Channels {
		ch, err := newChannel(chCfg, cfg.ClampBound)
		if err != nil {
			return nil, err
		}
		p.channels = append(p.channels, ch)
		for _, tag := range chCfg.Tags {
			p.byTag[tag] = ch
		}
	}
	return p, nil
}

// RegisterNotifier adds a notifier for finalized intervals.
// Notifiers are called synchronously, in registration order.
func (p *Pipeline) RegisterNotifier(n Notifier) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.notifiers = append(p.notifiers, n)
	logging.Debug().Str("notifier", n.Name()).Msg("registered interval notifier")
}

// Process runs one frame through its channel bundle and the tracker.
//
// Rejected frames (unknown tag, invalid value, out-of-order timestamp for the
// channel, or a finished pipeline) leave every buffer, smoother, estimator
// and the tracker untouched.
func (p *Pipeline) Process(ctx context.Context, frame Frame) (Result, error) {
	p.mu.Lock()
	res, notifiers, err := p.process(frame)
	p.mu.Unlock()

	if err != nil {
		metrics.RecordFrameRejected(RejectReason(err))
		return Result{}, err
	}

	metrics.RecordFrame(res.Channel, res.Divergence, res.Anomalous, res.Clamped)
	if res.Closed != nil {
		p.notify(ctx, notifiers, *res.Closed)
	}
	return res, nil
}

func (p *Pipeline) process(frame Frame) (Result, []Notifier, error) {
	if p.finished {
		return Result{}, nil, ErrFinished
	}
	if err := frame.validate(); err != nil {
		return Result{}, nil, err
	}
	ch, ok := p.byTag[frame.Tag]
	if !ok {
		return Result{}, nil, fmt.Errorf("%w: tag %q", ErrUnknownChannel, frame.Tag)
	}

	s, err := ch.add(frame.Timestamp, frame.Value)
	if err != nil {
		return Result{}, nil, err
	}

	closed, opened := p.tracker.Observe(frame.Timestamp, ch.cfg.Name, s.anomalous)
	return Result{
		Channel:    ch.cfg.Name,
		Timestamp:  frame.Timestamp,
		Value:      frame.Value,
		Fast:       s.fast,
		Slow:       s.slow,
		Divergence: s.estimate.Value,
		Clamped:    s.estimate.Clamped,
		Anomalous:  s.anomalous,
		Opened:     opened,
		Closed:     closed,
	}, p.notifiers, nil
}

// Finish marks the end of the stream and finalizes a trailing open interval.
// It is idempotent; later calls return nil.
func (p *Pipeline) Finish(ctx context.Context) *Interval {
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return nil
	}
	p.finished = true
	iv, ok := p.tracker.Flush()
	notifiers := p.notifiers
	p.mu.Unlock()

	if !ok {
		return nil
	}
	p.notify(ctx, notifiers, iv)
	return &iv
}

// Finished reports whether Finish has been called.
func (p *Pipeline) Finished() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.finished
}

// ChannelNames returns the configured channel names in order.
func (p *Pipeline) ChannelNames() []string {
	names := make([]string, len(p.channels))
	for i, ch := range p.channels {
		names[i] = ch.cfg.Name
	}
	return names
}

// Intervals returns the finalized intervals.
func (p *Pipeline) Intervals() []Interval {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tracker.Intervals()
}

// Snapshot returns a deep copy of all series and intervals, including the
// open interval as Provisional.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := Snapshot{
		Channels:  make([]ChannelSnapshot, len(p.channels)),
		Intervals: p.tracker.Intervals(),
		Finished:  p.finished,
	}
	for i, ch := range p.channels {
		snap.Channels[i] = ch.snapshot()
	}
	if iv, ok := p.tracker.Provisional(); ok {
		snap.Provisional = &iv
	}
	return snap
}

func (p *Pipeline) notify(ctx context.Context, notifiers []Notifier, iv Interval) {
	logging.Info().
		Float64("start", iv.StartSecond).
		Float64("end", iv.EndSecond).
		Int("samples", iv.Samples).
		Strs("channels", iv.Channels).
		Msg("anomaly interval closed")
	metrics.RecordInterval(iv.Duration())

	for _, n := range notifiers {
		if err := n.NotifyInterval(ctx, iv.clone()); err != nil {
			logging.Error().Err(err).Str("notifier", n.Name()).Msg("failed to deliver interval")
		}
	}
}
