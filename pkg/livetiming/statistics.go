// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Counters is a point-in-time copy of the statistics
type Counters struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalPackets     uint64
	CarPackets       uint64
	SystemPackets    uint64
	PayloadBytes     uint64
	ReplayEvents     uint64
	LiveEvents       uint64
	MalformedHeaders uint64
	UnknownTypes     uint64
	OtherErrors      uint64
	EventResets      uint64
	KeyframeResets   uint64

	// Rates (calculated)
	PacketRate float64 // packets/sec
	ErrorRate  float64 // errors/sec
}

// Errors returns the total number of failed packet attempts
func (c Counters) Errors() uint64 {
	return c.MalformedHeaders + c.UnknownTypes + c.OtherErrors
}

// Statistics tracks decode statistics and error rates.
// It implements Observer; phase counters are fed through RecordEvent.
type Statistics struct {
	mu sync.Mutex
	Counters
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{Counters: Counters{
		StartTime:      now,
		LastUpdateTime: now,
	}}
}

// PacketDecoded implements Observer
func (s *Statistics) PacketDecoded(p *Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalPackets++
	if p.IsCar() {
		s.CarPackets++
	} else {
		s.SystemPackets++
	}
	s.PayloadBytes += uint64(p.Length())
	s.LastUpdateTime = time.Now()
}

// DecodeFailed implements Observer
func (s *Statistics) DecodeFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case errors.Is(err, ErrMalformedHeader):
		s.MalformedHeaders++
	case errors.Is(err, ErrUnknownPacketType):
		s.UnknownTypes++
	default:
		s.OtherErrors++
	}
	s.LastUpdateTime = time.Now()
}

// CipherReset implements Observer
func (s *Statistics) CipherReset(reason ResetReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reason == ResetKeyframe {
		s.KeyframeResets++
	} else {
		s.EventResets++
	}
}

// RecordEvent counts an event against its phase
func (s *Statistics) RecordEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Phase == PhaseLive {
		s.LiveEvents++
	} else {
		s.ReplayEvents++
	}
}

// CalculateRates calculates packet and error rates
func (s *Statistics) CalculateRates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
}

func (s *Statistics) calculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.PacketRate = float64(s.TotalPackets) / elapsed
		s.ErrorRate = float64(s.Counters.Errors()) / elapsed
	}
}

// Snapshot returns a copy of the counters with fresh rates
func (s *Statistics) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
	return s.Counters
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	var errorPercent float64
	attempts := snap.TotalPackets + snap.Errors()
	if attempts > 0 {
		errorPercent = float64(snap.Errors()) * 100.0 / float64(attempts)
	}

	elapsed := time.Since(snap.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Packets:   %8d\n", snap.TotalPackets)
	result += fmt.Sprintf("  Car / System:  %8d / %d\n", snap.CarPackets, snap.SystemPackets)
	result += fmt.Sprintf("  Replay / Live: %8d / %d\n", snap.ReplayEvents, snap.LiveEvents)
	result += fmt.Sprintf("Payload Bytes:   %8d\n", snap.PayloadBytes)

	if snap.Errors() > 0 {
		result += fmt.Sprintf("Skipped Attempts:%8d (%.1f%%)\n", snap.Errors(), errorPercent)
		if snap.MalformedHeaders > 0 {
			result += fmt.Sprintf("  Malformed Header: %5d\n", snap.MalformedHeaders)
		}
		if snap.UnknownTypes > 0 {
			result += fmt.Sprintf("  Unknown Type:     %5d\n", snap.UnknownTypes)
		}
		if snap.OtherErrors > 0 {
			result += fmt.Sprintf("  Other:            %5d\n", snap.OtherErrors)
		}
	}

	result += fmt.Sprintf("Cipher Resets:   %8d event, %d keyframe\n", snap.EventResets, snap.KeyframeResets)
	result += fmt.Sprintf("Packet Rate:     %8.1f pkts/sec\n", snap.PacketRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", snap.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.Counters = Counters{StartTime: now, LastUpdateTime: now}
}
