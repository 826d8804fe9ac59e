// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package detection

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/tomtom215/harakiri/internal/series"
)

// recordingNotifier collects delivered intervals.
type recordingNotifier struct {
	mu        sync.Mutex
	intervals []Interval
	err       error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) NotifyInterval(_ context.Context, iv Interval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intervals = append(r.intervals, iv)
	return r.err
}

func (r *recordingNotifier) got() []Interval {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Interval(nil), r.intervals...)
}

func spikeConfig() Config {
	return Config{
		Channels: []ChannelConfig{
			DefaultKeyframeConfig(),
			{
				Name:      ChannelPredicted,
				Tags:      []string{"P"},
				AlphaFast: 0.3,
				AlphaSlow: 0.01,
				Window:    3,
				Threshold: 0.012,
			},
		},
		GapTolerance: 1.0,
	}
}

func spikeFrames() []Frame {
	values := []float64{10, 10, 10, 1000, 10, 10}
	frames := make([]Frame, len(values))
	for i, v := range values {
		frames[i] = Frame{Timestamp: float64(i), Tag: "P", Value: v}
	}
	return frames
}

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func feed(t *testing.T, p *Pipeline, frames []Frame) {
	t.Helper()
	for _, f := range frames {
		if _, err := p.Process(context.Background(), f); err != nil {
			t.Fatalf("Process(%+v): %v", f, err)
		}
	}
}

func TestPipelineSingleSpike(t *testing.T) {
	p := newTestPipeline(t, spikeConfig())
	n := &recordingNotifier{}
	p.RegisterNotifier(n)

	feed(t, p, spikeFrames())

	snap := p.Snapshot()
	if len(snap.Intervals) != 0 {
		t.Fatalf("intervals before Finish = %v, want none", snap.Intervals)
	}
	if snap.Provisional == nil || snap.Provisional.StartSecond != 3 {
		t.Fatalf("provisional = %+v, want interval starting at 3", snap.Provisional)
	}

	iv := p.Finish(context.Background())
	if iv == nil {
		t.Fatal("Finish returned no interval")
	}
	if iv.StartSecond != 3 || iv.EndSecond != 5 {
		t.Errorf("interval = [%v, %v], want [3, 5]", iv.StartSecond, iv.EndSecond)
	}
	if iv.Samples != 3 {
		t.Errorf("samples = %d, want 3", iv.Samples)
	}

	intervals := p.Intervals()
	if len(intervals) != 1 {
		t.Fatalf("len(intervals) = %d, want 1", len(intervals))
	}
	if got := n.got(); len(got) != 1 || got[0].StartSecond != 3 {
		t.Errorf("notifier received %v, want one interval at 3", got)
	}
	if p.Snapshot().Provisional != nil {
		t.Error("provisional interval survived Finish")
	}
}

func TestPipelineSeriesAlignment(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())
	frames := []Frame{
		{0.00, "I", 0.9},
		{0.04, "P", 0.2},
		{0.08, "B", 0.1},
		{0.12, "P", 0.25},
		{0.50, "I", 1.1},
	}
	feed(t, p, frames)

	snap := p.Snapshot()
	want := map[string]int{ChannelKeyframe: 2, ChannelPredicted: 3}
	for _, ch := range snap.Channels {
		if ch.Len() != want[ch.Name] {
			t.Errorf("%s: len = %d, want %d", ch.Name, ch.Len(), want[ch.Name])
		}
		for name, s := range map[string][]float64{
			"values":     ch.Values,
			"fast":       ch.Fast,
			"slow":       ch.Slow,
			"divergence": ch.Divergence,
		} {
			if len(s) != ch.Len() {
				t.Errorf("%s: len(%s) = %d, want %d", ch.Name, name, len(s), ch.Len())
			}
		}
	}
}

func TestPipelineOutOfOrderLeavesStateUntouched(t *testing.T) {
	p := newTestPipeline(t, spikeConfig())
	feed(t, p, spikeFrames()[:4])

	before := p.Snapshot()
	_, err := p.Process(context.Background(), Frame{Timestamp: 2, Tag: "P", Value: 10})
	if !errors.Is(err, series.ErrOutOfOrder) {
		t.Fatalf("error = %v, want ErrOutOfOrder", err)
	}
	if RejectReason(err) != "out_of_order" {
		t.Errorf("RejectReason = %q, want out_of_order", RejectReason(err))
	}

	after := p.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("snapshot changed after rejected frame\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestPipelineOrderingIsPerChannel(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())
	feed(t, p, []Frame{
		{Timestamp: 2.0, Tag: "P", Value: 0.1},
		{Timestamp: 1.0, Tag: "I", Value: 0.9},
	})
	// Equal timestamps are allowed.
	feed(t, p, []Frame{{Timestamp: 2.0, Tag: "B", Value: 0.1}})
}

func TestPipelineRejections(t *testing.T) {
	tests := []struct {
		name   string
		frame  Frame
		target error
		reason string
	}{
		{"unknown tag", Frame{Timestamp: 1, Tag: "X", Value: 1}, ErrUnknownChannel, "unknown_channel"},
		{"negative value", Frame{Timestamp: 1, Tag: "I", Value: -1}, ErrInvalidFrame, "invalid_frame"},
		{"NaN value", Frame{Timestamp: 1, Tag: "I", Value: math.NaN()}, ErrInvalidFrame, "invalid_frame"},
		{"infinite timestamp", Frame{Timestamp: math.Inf(1), Tag: "I", Value: 1}, ErrInvalidFrame, "invalid_frame"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, DefaultConfig())
			before := p.Snapshot()

			_, err := p.Process(context.Background(), tt.frame)
			if !errors.Is(err, tt.target) {
				t.Fatalf("error = %v, want %v", err, tt.target)
			}
			if got := RejectReason(err); got != tt.reason {
				t.Errorf("RejectReason = %q, want %q", got, tt.reason)
			}
			if !reflect.DeepEqual(before, p.Snapshot()) {
				t.Error("rejected frame mutated pipeline state")
			}
		})
	}
}

func TestPipelineFinish(t *testing.T) {
	p := newTestPipeline(t, spikeConfig())
	feed(t, p, spikeFrames()[:3])

	if iv := p.Finish(context.Background()); iv != nil {
		t.Errorf("Finish with no open interval returned %+v", *iv)
	}
	if !p.Finished() {
		t.Error("Finished() = false after Finish")
	}
	if iv := p.Finish(context.Background()); iv != nil {
		t.Error("second Finish returned an interval")
	}

	_, err := p.Process(context.Background(), Frame{Timestamp: 10, Tag: "P", Value: 1})
	if !errors.Is(err, ErrFinished) {
		t.Errorf("Process after Finish error = %v, want ErrFinished", err)
	}
	if !p.Snapshot().Finished {
		t.Error("snapshot Finished = false")
	}
}

func TestPipelineDeterministicReplay(t *testing.T) {
	frames := append(spikeFrames(),
		Frame{Timestamp: 6, Tag: "I", Value: 0.5},
		Frame{Timestamp: 9, Tag: "P", Value: 500},
		Frame{Timestamp: 9.5, Tag: "P", Value: 10},
	)

	run := func() Snapshot {
		p := newTestPipeline(t, spikeConfig())
		feed(t, p, frames)
		p.Finish(context.Background())
		return p.Snapshot()
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("replay diverged\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if len(first.Intervals) != 2 {
		t.Errorf("len(intervals) = %d, want 2", len(first.Intervals))
	}
}

func TestPipelineClampRepeatsPreviousEstimate(t *testing.T) {
	p := newTestPipeline(t, spikeConfig())
	feed(t, p, []Frame{
		{Timestamp: 0, Tag: "P", Value: 0},
		{Timestamp: 1, Tag: "P", Value: 1e6},
	})

	ch, ok := p.Snapshot().Channel(ChannelPredicted)
	if !ok {
		t.Fatal("predicted channel missing from snapshot")
	}
	if !reflect.DeepEqual(ch.Divergence, []float64{0, 0}) {
		t.Errorf("divergence = %v, want [0 0]", ch.Divergence)
	}
	if ch.Clamped != 1 {
		t.Errorf("clamped = %d, want 1", ch.Clamped)
	}
	if ch.Anomalous != 0 {
		t.Errorf("anomalous = %d, want 0", ch.Anomalous)
	}
}

func TestPipelineNotifierErrorDoesNotStopDelivery(t *testing.T) {
	p := newTestPipeline(t, spikeConfig())
	failing := &recordingNotifier{err: errors.New("boom")}
	ok := &recordingNotifier{}
	p.RegisterNotifier(failing)
	p.RegisterNotifier(ok)

	feed(t, p, spikeFrames())
	// A normal sample past the gap closes the interval through Process.
	res, err := p.Process(context.Background(), Frame{Timestamp: 10, Tag: "I", Value: 1})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Closed == nil {
		t.Fatal("Result.Closed is nil")
	}
	if len(failing.got()) != 1 || len(ok.got()) != 1 {
		t.Errorf("deliveries failing=%d ok=%d, want 1 each", len(failing.got()), len(ok.got()))
	}
}

func TestNewPipelineInvalidConfig(t *testing.T) {
	dup := DefaultConfig()
	dup.Channels[1].Tags = []string{"I"}

	badAlpha := DefaultConfig()
	badAlpha.Channels[0].AlphaFast = 0.01

	badWindow := DefaultConfig()
	badWindow.Channels[0].Window = 0

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no channels", Config{GapTolerance: 1}},
		{"negative gap", Config{Channels: DefaultConfig().Channels, GapTolerance: -1}},
		{"duplicate tag", dup},
		{"fast not above slow", badAlpha},
		{"zero window", badWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPipeline(tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewPipeline error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestSnapshotAllIntervals(t *testing.T) {
	prov := Interval{StartSecond: 5, EndSecond: 6}
	s := Snapshot{
		Intervals:   []Interval{{StartSecond: 1, EndSecond: 2}},
		Provisional: &prov,
	}
	all := s.AllIntervals()
	if len(all) != 2 || all[1].StartSecond != 5 {
		t.Errorf("AllIntervals = %+v", all)
	}
	if _, ok := s.Channel("missing"); ok {
		t.Error("Channel(missing) reported ok")
	}
}
