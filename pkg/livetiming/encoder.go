// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"bytes"
	"fmt"
	"strconv"
)

// Encoder builds wire bytes for live-timing packets.
// It owns a cipher that mirrors the decoder's: EncodeEventStart and
// EncodeKeyframe apply the same resets a decoder applies when reading them.
type Encoder struct {
	cipher *Cipher
	buf    bytes.Buffer
}

// NewEncoder creates a new packet encoder
func NewEncoder() *Encoder {
	return &Encoder{cipher: NewCipher()}
}

// Cipher returns the encoder's cipher
func (e *Encoder) Cipher() *Cipher {
	return e.cipher
}

// Bytes returns everything encoded so far
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Encode appends one packet and returns its wire bytes.
//
// low supplies the header data bits the length rule does not use: the low 3
// bits for short packets, the whole field for special packets. It is ignored
// for long and timestamp packets.
func (e *Encoder) Encode(kind Kind, car uint8, low uint8, payload []byte) ([]byte, error) {
	wire, err := e.encode(kind, car, low, payload)
	if err != nil {
		return nil, err
	}
	e.buf.Write(wire)
	return wire, nil
}

// EncodeCleared appends a short packet with the "no payload" sentinel
func (e *Encoder) EncodeCleared(kind Kind, car uint8, low uint8) ([]byte, error) {
	if kind.Rule() != RuleShort {
		return nil, fmt.Errorf("%s does not use the short length rule", kind)
	}
	if err := checkCar(kind, car); err != nil {
		return nil, err
	}
	h := Header{Data: shortCleared<<3 | low&0x07, Type: kind.Code(), Car: car}
	raw := h.Bytes()
	e.buf.Write(raw[:])
	return raw[:], nil
}

// EncodeEventStart appends an event-start packet and switches the encoder's
// cipher to hexKey with a fresh salt
func (e *Encoder) EncodeEventStart(kind EventKind, session int, hexKey string) ([]byte, error) {
	payload := append([]byte{byte(kind)}, strconv.Itoa(session)...)
	wire, err := e.Encode(KindEventStart, 0, 0, payload)
	if err != nil {
		return nil, err
	}
	if err := e.cipher.SetKey(hexKey); err != nil {
		return nil, err
	}
	e.cipher.Reset()
	return wire, nil
}

// EncodeKeyframe appends a keyframe marker and resets the encoder's salt
func (e *Encoder) EncodeKeyframe(number uint32) ([]byte, error) {
	payload := []byte{byte(number), byte(number >> 8)}
	if number > 0xFFFF {
		payload = append(payload, byte(number>>16), byte(number>>24))
	}
	wire, err := e.Encode(KindKeyframe, 0, 0, payload)
	if err != nil {
		return nil, err
	}
	e.cipher.Reset()
	return wire, nil
}

func (e *Encoder) encode(kind Kind, car uint8, low uint8, payload []byte) ([]byte, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("cannot encode %s", kind)
	}
	if kind.Code() > 0x0F {
		return nil, fmt.Errorf("%s has no wire representation", kind)
	}
	if err := checkCar(kind, car); err != nil {
		return nil, err
	}

	var data uint8
	switch kind.Rule() {
	case RuleSpecial:
		if len(payload) != 0 {
			return nil, fmt.Errorf("%s carries no payload, got %d bytes", kind, len(payload))
		}
		data = low & 0x7F
	case RuleShort:
		if len(payload) >= shortCleared {
			return nil, fmt.Errorf("%s payload too large: %d bytes (max %d)", kind, len(payload), shortCleared-1)
		}
		data = uint8(len(payload))<<3 | low&0x07
	case RuleLong:
		if len(payload) > MaxPayloadSize {
			return nil, fmt.Errorf("%s payload too large: %d bytes (max %d)", kind, len(payload), MaxPayloadSize)
		}
		data = uint8(len(payload))
	case RuleTimestamp:
		if len(payload) != 2 {
			return nil, fmt.Errorf("%s payload must be 2 bytes, got %d", kind, len(payload))
		}
	}

	h := Header{Data: data, Type: kind.Code(), Car: car}
	raw := h.Bytes()
	wire := make([]byte, 0, HeaderSize+len(payload))
	wire = append(wire, raw[:]...)
	if kind.Encrypted() {
		wire = append(wire, e.cipher.Encrypt(payload)...)
	} else {
		wire = append(wire, payload...)
	}
	return wire, nil
}

func checkCar(kind Kind, car uint8) error {
	if kind.IsCar() && (car == 0 || car > 0x1F) {
		return fmt.Errorf("%s needs a car number in 1-31, got %d", kind, car)
	}
	if !kind.IsCar() && car != 0 {
		return fmt.Errorf("%s is a system packet, got car %d", kind, car)
	}
	return nil
}
