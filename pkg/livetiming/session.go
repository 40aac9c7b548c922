// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"fmt"
	"io"
	"iter"
)

// Phase tags where a packet came from
type Phase int

// Phases
const (
	PhaseReplay Phase = iota // decoded from the keyframe snapshot
	PhaseLive                // decoded from the live tail
)

func (p Phase) String() string {
	if p == PhaseLive {
		return "live"
	}
	return "replay"
}

// Event is a packet tagged with its phase
type Event struct {
	Phase  Phase
	Packet *Packet
}

// Session runs the two-phase read: the most recent keyframe of the primary
// source is decoded to exhaustion first, then the primary source itself.
// Both phases share one decoder, so cipher state carries across.
type Session struct {
	primary Source
	decoder *Decoder
	stream  *Stream
	phase   Phase
	done    bool
}

// NewSession creates a session over primary
func NewSession(primary Source, opts ...Option) *Session {
	return &Session{
		primary: primary,
		decoder: NewDecoder(opts...),
	}
}

// Decoder returns the session's decoder
func (s *Session) Decoder() *Decoder {
	return s.decoder
}

// Phase returns the phase currently being read
func (s *Session) Phase() Phase {
	return s.phase
}

// Next returns the next event, or io.EOF after the live phase is exhausted
func (s *Session) Next() (Event, error) {
	if s.done {
		return Event{}, io.EOF
	}
	if s.stream == nil {
		snapshot, err := s.primary.Keyframe(nil)
		if err != nil {
			s.done = true
			return Event{}, fmt.Errorf("resolve keyframe: %w", err)
		}
		s.phase = PhaseReplay
		s.stream = s.decoder.Stream(snapshot)
	}
	for {
		p, err := s.stream.Next()
		if err == nil {
			return Event{Phase: s.phase, Packet: p}, nil
		}
		if err != io.EOF {
			s.done = true
			return Event{}, fmt.Errorf("%s phase: %w", s.phase, err)
		}
		if s.phase == PhaseLive {
			s.done = true
			return Event{}, io.EOF
		}
		s.phase = PhaseLive
		s.stream = s.decoder.Stream(s.primary)
	}
}

// Events returns an iterator over the session's events.
// Iteration stops after the first error.
func (s *Session) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}
