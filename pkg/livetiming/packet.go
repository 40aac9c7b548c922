// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import "time"

// Packet represents a decoded live-timing packet
type Packet struct {
	header    Header
	kind      Kind
	payload   []byte // decrypted, never nil
	timestamp time.Time
}

// NewPacket creates a packet from a decoded header and its final payload.
// The payload must already be decrypted and must not be modified afterwards.
func NewPacket(header Header, kind Kind, payload []byte) *Packet {
	if payload == nil {
		payload = []byte{}
	}
	return &Packet{
		header:    header,
		kind:      kind,
		payload:   payload,
		timestamp: time.Now(),
	}
}

// Header returns the packet's undecrypted header
func (p *Packet) Header() Header {
	return p.header
}

// Kind returns the packet variant
func (p *Packet) Kind() Kind {
	return p.kind
}

// Car returns the originating car number (0 for system packets)
func (p *Packet) Car() uint8 {
	return p.header.Car
}

// Type returns the raw packet type field
func (p *Packet) Type() uint8 {
	return p.header.Type
}

// Data returns the raw 7-bit header data field
func (p *Packet) Data() uint8 {
	return p.header.Data
}

// Payload returns a copy of the decrypted payload bytes. An empty payload
// clears the field.
func (p *Packet) Payload() []byte {
	return append([]byte{}, p.payload...)
}

// Length returns the payload length
func (p *Packet) Length() int {
	return len(p.payload)
}

// Encrypted reports whether the payload was cipher-protected on the wire
func (p *Packet) Encrypted() bool {
	return p.kind.Encrypted()
}

// IsCar returns true for car packets
func (p *Packet) IsCar() bool {
	return p.header.IsCar()
}

// IsSystem returns true for system packets
func (p *Packet) IsSystem() bool {
	return p.header.IsSystem()
}

// Timestamp returns the packet's decode timestamp
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}
