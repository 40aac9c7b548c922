// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Record is the CBOR form of an event:
// [phase, car, type, data, kind, payload, unix_nanos]
type Record struct {
	_         struct{} `cbor:",toarray"`
	Phase     string
	Car       uint8
	Type      uint8
	Data      uint8
	Kind      string
	Payload   []byte
	Timestamp int64
}

// NewRecord converts an event to its record form
func NewRecord(ev Event) Record {
	p := ev.Packet
	return Record{
		Phase:     ev.Phase.String(),
		Car:       p.Car(),
		Type:      p.Type(),
		Data:      p.Data(),
		Kind:      p.Kind().String(),
		Payload:   p.Payload(),
		Timestamp: p.Timestamp().UnixNano(),
	}
}

// MarshalRecord encodes an event as a CBOR record
func MarshalRecord(ev Event) ([]byte, error) {
	data, err := cbor.Marshal(NewRecord(ev))
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

// UnmarshalRecord decodes a CBOR record
func UnmarshalRecord(data []byte) (Record, error) {
	var rec Record
	if len(data) == 0 {
		return rec, fmt.Errorf("empty CBOR record")
	}
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

// Event rebuilds the event described by the record. The header comes from the
// record fields; the payload is already decrypted.
func (r Record) Event() (Event, error) {
	kind, err := Resolve(r.Car, r.Type)
	if err != nil {
		return Event{}, err
	}
	phase := PhaseReplay
	switch r.Phase {
	case "live":
		phase = PhaseLive
	case "replay":
	default:
		return Event{}, fmt.Errorf("unknown phase %q", r.Phase)
	}
	p := NewPacket(Header{Data: r.Data, Type: r.Type, Car: r.Car}, kind, r.Payload)
	p.timestamp = time.Unix(0, r.Timestamp)
	return Event{Phase: phase, Packet: p}, nil
}
