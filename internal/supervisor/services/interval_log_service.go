// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/harakiri/internal/detection"
	"github.com/tomtom215/harakiri/internal/events"
	"github.com/tomtom215/harakiri/internal/export"
	"github.com/tomtom215/harakiri/internal/logging"
)

// IntervalLogService subscribes to interval events and writes each one as
// an anomaly listing line to out.
type IntervalLogService struct {
	subscriber message.Subscriber
	topic      string
	out        io.Writer

	mu       sync.Mutex
	messages <-chan *message.Message
}

// NewIntervalLogService creates the service.
func NewIntervalLogService(sub message.Subscriber, topic string, out io.Writer) *IntervalLogService {
	return &IntervalLogService{subscriber: sub, topic: topic, out: out}
}

// Subscribe opens the subscription ahead of Serve. Messages published
// between Subscribe and Serve are delivered to the first Serve call. The
// subscription ends when ctx is done.
func (s *IntervalLogService) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messages != nil {
		return nil
	}
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}
	s.messages = messages
	return nil
}

// Serve implements suture.Service. It consumes the subscription opened by
// Subscribe, or subscribes itself when there is none. Undecodable messages
// are logged and acked. A closed subscription ends the service without
// restart.
func (s *IntervalLogService) Serve(ctx context.Context) error {
	s.mu.Lock()
	messages := s.messages
	s.messages = nil
	s.mu.Unlock()

	if messages == nil {
		var err error
		messages, err = s.subscriber.Subscribe(ctx, s.topic)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", s.topic, err)
		}
	}

	log := logging.WithComponent("interval-log")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Info().Str("topic", s.topic).Msg("Interval subscription closed")
				return suture.ErrDoNotRestart
			}
			s.handle(&log, msg)
		}
	}
}

func (s *IntervalLogService) handle(log *zerolog.Logger, msg *message.Message) {
	defer msg.Ack()

	ev, err := events.Decode(msg)
	if err != nil {
		log.Warn().Err(err).Msg("Dropping malformed interval event")
		return
	}
	if err := export.WriteAnomalyListing(s.out, []detection.Interval{ev.Interval()}); err != nil {
		log.Error().Err(err).Str("event_id", ev.EventID).Msg("Failed to write interval event")
	}
}

// String names the service in supervisor logs.
func (s *IntervalLogService) String() string {
	return "interval-log:" + s.topic
}
