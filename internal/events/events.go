// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/harakiri/internal/detection"
	"github.com/tomtom215/harakiri/internal/logging"
	"github.com/tomtom215/harakiri/internal/metrics"
)

// DefaultTopic is the topic finalized intervals are published on.
const DefaultTopic = "anomaly.intervals"

// Metadata keys set on every message.
const (
	MetadataSessionID = "session_id"
	MetadataSource    = "source"
	MetadataChannels  = "channels"
)

// ErrPublisherClosed is returned by NotifyInterval after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// Config configures interval publication.
type Config struct {
	// Topic defaults to DefaultTopic.
	Topic string
	// Source names the frame source in message metadata.
	Source string
	// Buffer is the gochannel output buffer per subscriber.
	Buffer int64
	// WaitForAck makes Publish block until every subscriber acks the
	// message. Publishing to a topic without subscribers never blocks.
	WaitForAck bool
}

// IntervalEvent is the JSON payload of one message.
type IntervalEvent struct {
	EventID     string    `json:"event_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Source      string    `json:"source,omitempty"`
	StartSecond float64   `json:"start"`
	EndSecond   float64   `json:"end"`
	Samples     int       `json:"samples"`
	Channels    []string  `json:"channels"`
	PublishedAt time.Time `json:"published_at"`
}

// Interval returns the detection interval carried by the event.
func (e *IntervalEvent) Interval() detection.Interval {
	return detection.Interval{
		StartSecond: e.StartSecond,
		EndSecond:   e.EndSecond,
		Samples:     e.Samples,
		Channels:    append([]string(nil), e.Channels...),
	}
}

// NewGoChannel creates the in-process Pub/Sub used by default, logging
// through the shared zerolog logger.
func NewGoChannel(cfg Config) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            cfg.Buffer,
			BlockPublishUntilSubscriberAck: cfg.WaitForAck,
		},
		watermill.NewSlogLogger(logging.NewSlogLogger()),
	)
}

// Publisher publishes finalized intervals. It implements detection.Notifier.
type Publisher struct {
	publisher message.Publisher
	topic     string
	source    string

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps a Watermill publisher.
func NewPublisher(pub message.Publisher, cfg Config) *Publisher {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{publisher: pub, topic: topic, source: cfg.Source}
}

// Name returns "events".
func (p *Publisher) Name() string { return "events" }

// Topic returns the publish topic.
func (p *Publisher) Topic() string { return p.topic }

// NotifyInterval publishes one interval. The session id is read from ctx.
func (p *Publisher) NotifyInterval(ctx context.Context, iv detection.Interval) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	ev := IntervalEvent{
		EventID:     uuid.New().String(),
		SessionID:   logging.SessionIDFromContext(ctx),
		Source:      p.source,
		StartSecond: iv.StartSecond,
		EndSecond:   iv.EndSecond,
		Samples:     iv.Samples,
		Channels:    append([]string(nil), iv.Channels...),
		PublishedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("marshal interval event: %w", err)
	}

	msg := message.NewMessage(ev.EventID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataSessionID, ev.SessionID)
	msg.Metadata.Set(MetadataSource, ev.Source)
	msg.Metadata.Set(MetadataChannels, strings.Join(ev.Channels, ","))

	err = p.publisher.Publish(p.topic, msg)
	metrics.RecordEventPublish(err)
	if err != nil {
		return fmt.Errorf("publish interval %s: %w", ev.EventID, err)
	}
	return nil
}

// Close closes the underlying publisher. Safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// Decode parses a message published by Publisher.
func Decode(msg *message.Message) (*IntervalEvent, error) {
	var ev IntervalEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal interval event %s: %w", msg.UUID, err)
	}
	return &ev, nil
}
