// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package events

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/harakiri/internal/detection"
	"github.com/tomtom215/harakiri/internal/logging"
)

func receive(t *testing.T, msgs <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-msgs:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPublisherNotifyInterval(t *testing.T) {
	bus := NewGoChannel(Config{Buffer: 4})
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := bus.Subscribe(ctx, DefaultTopic)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	pub := NewPublisher(bus, Config{Source: "frames.ndjson"})
	if pub.Name() != "events" || pub.Topic() != DefaultTopic {
		t.Errorf("name/topic = %q/%q", pub.Name(), pub.Topic())
	}

	iv := detection.Interval{StartSecond: 3, EndSecond: 5, Samples: 3, Channels: []string{"keyframe", "predicted"}}
	sessionCtx := logging.ContextWithSessionID(ctx, "session-42")
	if err := pub.NotifyInterval(sessionCtx, iv); err != nil {
		t.Fatalf("NotifyInterval: %v", err)
	}

	msg := receive(t, msgs)
	if msg.Metadata.Get(MetadataSessionID) != "session-42" {
		t.Errorf("session metadata = %q", msg.Metadata.Get(MetadataSessionID))
	}
	if msg.Metadata.Get(MetadataSource) != "frames.ndjson" {
		t.Errorf("source metadata = %q", msg.Metadata.Get(MetadataSource))
	}
	if msg.Metadata.Get(MetadataChannels) != "keyframe,predicted" {
		t.Errorf("channels metadata = %q", msg.Metadata.Get(MetadataChannels))
	}

	ev, err := Decode(msg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.EventID != msg.UUID {
		t.Errorf("event id %q != message uuid %q", ev.EventID, msg.UUID)
	}
	if !reflect.DeepEqual(ev.Interval(), iv) {
		t.Errorf("Interval() = %+v, want %+v", ev.Interval(), iv)
	}
}

func TestPublisherWiredToPipeline(t *testing.T) {
	bus := NewGoChannel(Config{Buffer: 4})
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := bus.Subscribe(ctx, "custom.topic")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	cfg := detection.DefaultConfig()
	cfg.Channels[1].Window = 3
	p, err := detection.NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	p.RegisterNotifier(NewPublisher(bus, Config{Topic: "custom.topic"}))

	for i, v := range []float64{10, 10, 10, 1000, 10, 10} {
		if _, err := p.Process(ctx, detection.Frame{Timestamp: float64(i), Tag: "P", Value: v}); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	p.Finish(ctx)

	ev, err := Decode(receive(t, msgs))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.StartSecond != 3 || ev.EndSecond != 5 {
		t.Errorf("event interval = [%v, %v], want [3, 5]", ev.StartSecond, ev.EndSecond)
	}
}

func TestPublisherClosed(t *testing.T) {
	pub := NewPublisher(NewGoChannel(Config{}), Config{})
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	err := pub.NotifyInterval(context.Background(), detection.Interval{})
	if !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("NotifyInterval after Close = %v, want ErrPublisherClosed", err)
	}
}

func TestDecodeInvalidPayload(t *testing.T) {
	if _, err := Decode(message.NewMessage("bad", []byte("not json"))); err == nil {
		t.Error("Decode(not json) returned nil error")
	}
}
