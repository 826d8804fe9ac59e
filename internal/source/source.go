// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package source provides frame sources for the detection pipeline.
//
// A Source yields frames in stream order and returns io.EOF once exhausted.
// Frame decoding (demuxing a bitstream into sized, typed frames) happens
// outside this module; NDJSONSource reads the newline-delimited records such
// a demuxer emits:
//
//	{"ts": 0.000, "type": "I", "value": 0.0132}
//	{"ts": 0.040, "type": "P", "value": 0.0021}
package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/tomtom215/harakiri/internal/detection"
)

// ErrMalformedRecord is returned for a line that does not decode to a frame.
var ErrMalformedRecord = errors.New("malformed frame record")

// maxLineSize bounds one NDJSON record.
const maxLineSize = 1 << 20

// Source yields frames in stream order.
type Source interface {
	// Next returns the next frame, or io.EOF when the stream is exhausted.
	Next(ctx context.Context) (detection.Frame, error)
}

// Named is implemented by sources that can describe their origin.
type Named interface {
	Name() string
}

// NameOf returns the source name, or "unknown".
func NameOf(src Source) string {
	if n, ok := src.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

// SliceSource replays in-memory frames.
type SliceSource struct {
	name   string
	frames []detection.Frame
	pos    int
}

// NewSliceSource creates a source over a copy of frames.
func NewSliceSource(name string, frames []detection.Frame) *SliceSource {
	return &SliceSource{name: name, frames: append([]detection.Frame(nil), frames...)}
}

// Name returns the source name.
func (s *SliceSource) Name() string { return s.name }

// Next returns the next frame.
func (s *SliceSource) Next(ctx context.Context) (detection.Frame, error) {
	if err := ctx.Err(); err != nil {
		return detection.Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return detection.Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// record is the wire form of one frame. Pointers distinguish missing fields
// from zero values.
type record struct {
	Timestamp *float64 `json:"ts"`
	Type      string   `json:"type"`
	Value     *float64 `json:"value"`
}

// NDJSONSource decodes one frame per line from a reader.
// Blank lines are skipped.
type NDJSONSource struct {
	name    string
	scanner *bufio.Scanner
	line    int
}

// NewNDJSONSource creates a source reading newline-delimited JSON from r.
func NewNDJSONSource(name string, r io.Reader) *NDJSONSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &NDJSONSource{name: name, scanner: sc}
}

// Name returns the source name.
func (s *NDJSONSource) Name() string { return s.name }

// Line returns the number of lines consumed so far.
func (s *NDJSONSource) Line() int { return s.line }

// Next decodes the next non-blank line.
func (s *NDJSONSource) Next(ctx context.Context) (detection.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return detection.Frame{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return detection.Frame{}, fmt.Errorf("%s: line %d: %w", s.name, s.line+1, err)
			}
			return detection.Frame{}, io.EOF
		}
		s.line++

		raw := bytes.TrimSpace(s.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return detection.Frame{}, fmt.Errorf("%s: line %d: %w: %w", s.name, s.line, ErrMalformedRecord, err)
		}
		if rec.Timestamp == nil || rec.Value == nil || rec.Type == "" {
			return detection.Frame{}, fmt.Errorf("%s: line %d: %w: ts, type and value are required", s.name, s.line, ErrMalformedRecord)
		}
		return detection.Frame{Timestamp: *rec.Timestamp, Tag: rec.Type, Value: *rec.Value}, nil
	}
}

// ChanSource receives frames from a single producer goroutine. The producer
// closes the channel at end of stream; Err reports why production stopped.
type ChanSource struct {
	name   string
	frames <-chan detection.Frame
	errc   <-chan error
	done   error
}

// NewChanSource creates a source reading from frames. errc may be nil; if
// set, the first value received after frames is closed is returned in place
// of io.EOF when non-nil.
func NewChanSource(name string, frames <-chan detection.Frame, errc <-chan error) *ChanSource {
	return &ChanSource{name: name, frames: frames, errc: errc}
}

// Name returns the source name.
func (s *ChanSource) Name() string { return s.name }

// Next blocks until a frame arrives, the channel is closed, or ctx is done.
func (s *ChanSource) Next(ctx context.Context) (detection.Frame, error) {
	select {
	case <-ctx.Done():
		return detection.Frame{}, ctx.Err()
	case f, ok := <-s.frames:
		if ok {
			return f, nil
		}
	}

	if s.errc != nil {
		select {
		case err := <-s.errc:
			s.done = err
		case <-ctx.Done():
			return detection.Frame{}, ctx.Err()
		}
		s.errc = nil
	}
	if s.done != nil {
		return detection.Frame{}, s.done
	}
	return detection.Frame{}, io.EOF
}

// Buffered returns src unchanged when buffer is 0, so the consumer decodes
// frames inline. A positive buffer decodes through Pump.
func Buffered(ctx context.Context, src Source, buffer int) Source {
	if buffer <= 0 {
		return src
	}
	return Pump(ctx, src, buffer)
}

// Pump decodes src in a new goroutine and forwards frames over a channel of
// the given buffer size. It returns a ChanSource for the consumer side.
func Pump(ctx context.Context, src Source, buffer int) *ChanSource {
	frames := make(chan detection.Frame, buffer)
	errc := make(chan error, 1)

	go func() {
		defer close(frames)
		for {
			f, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				errc <- nil
				return
			}
			if err != nil {
				errc <- err
				return
			}
			select {
			case frames <- f:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return NewChanSource(NameOf(src), frames, errc)
}
