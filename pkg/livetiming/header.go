// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"errors"
	"fmt"
)

// Header is the 2-byte prefix of every packet
type Header struct {
	Data uint8 // 7 bits
	Type uint8 // 4 bits
	Car  uint8 // 5 bits, 0 for system packets
}

// ParseHeader splits raw header bytes into their bit-fields.
// The bytes are swapped and the resulting 16 bits are read MSB first as
// data(7) + type(4) + car(5).
func ParseHeader(raw [HeaderSize]byte) Header {
	bits := uint16(raw[1])<<8 | uint16(raw[0])
	return Header{
		Data: uint8(bits >> 9),
		Type: uint8(bits>>5) & 0x0F,
		Car:  uint8(bits) & 0x1F,
	}
}

// Bytes reconstructs the wire bytes of the header
func (h Header) Bytes() [HeaderSize]byte {
	bits := uint16(h.Data&0x7F)<<9 | uint16(h.Type&0x0F)<<5 | uint16(h.Car&0x1F)
	return [HeaderSize]byte{byte(bits), byte(bits >> 8)}
}

// IsCar reports whether the header identifies a car
func (h Header) IsCar() bool {
	return h.Car != 0
}

// IsSystem reports whether the header carries session-wide information
func (h Header) IsSystem() bool {
	return h.Car == 0
}

func (h Header) String() string {
	raw := h.Bytes()
	return fmt.Sprintf("%02X%02X(data=%d type=%d car=%d)", raw[0], raw[1], h.Data, h.Type, h.Car)
}

// DecodeHeader reads exactly HeaderSize bytes from src.
// A source that runs dry between the two header bytes yields ErrMalformedHeader;
// a source with no bytes left yields ErrEndOfSource.
func DecodeHeader(src Source) (Header, error) {
	raw, err := src.ReadBytes(HeaderSize)
	if err != nil {
		if errors.Is(err, ErrShortRead) {
			return Header{}, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}
		return Header{}, err
	}
	if len(raw) < HeaderSize {
		return Header{}, fmt.Errorf("%w: got %d bytes", ErrMalformedHeader, len(raw))
	}
	return ParseHeader([HeaderSize]byte{raw[0], raw[1]}), nil
}
