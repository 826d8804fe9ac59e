// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package events publishes finalized anomaly intervals as Watermill messages.
//
// Publisher implements detection.Notifier. Every finalized interval becomes
// one message on the configured topic (default "anomaly.intervals"):
//
//	UUID:     new v4 UUID per interval
//	Metadata: session_id, source, channels (comma-separated)
//	Payload:  JSON IntervalEvent
//
// The in-process transport is Watermill's gochannel Pub/Sub, so API handlers
// or tests can subscribe to live intervals without an external broker. Any
// other message.Publisher can be passed to NewPublisher instead.
//
//	bus := events.NewGoChannel(events.Config{Buffer: 64})
//	pub := events.NewPublisher(bus, events.Config{Topic: "anomaly.intervals"})
//	pipeline.RegisterNotifier(pub)
//
//	msgs, _ := bus.Subscribe(ctx, "anomaly.intervals")
//	for msg := range msgs {
//	    ev, _ := events.Decode(msg)
//	    msg.Ack()
//	}
package events
