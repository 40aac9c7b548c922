// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

// ============================================================
// Encoder Tests
// ============================================================

func TestEncode_ShortHeader(t *testing.T) {
	enc := NewEncoder()
	wire, err := enc.Encode(KindCarGap, 9, uint8(ColourYellow), []byte("1.2"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(wire) != HeaderSize+3 {
		t.Fatalf("wire length = %d, want %d", len(wire), HeaderSize+3)
	}
	h := ParseHeader([2]byte{wire[0], wire[1]})
	if h.Car != 9 || h.Type != CarGap {
		t.Errorf("header = %+v", h)
	}
	if RuleShort.Length(h.Data) != 3 {
		t.Errorf("short length = %d, want 3", RuleShort.Length(h.Data))
	}
	if Colour(h.Data&0x07) != ColourYellow {
		t.Errorf("colour bits = %d", h.Data&0x07)
	}
	if bytes.Equal(wire[HeaderSize:], []byte("1.2")) {
		t.Error("short car payload should be encrypted")
	}
}

func TestEncode_ClearPayloadNotEncrypted(t *testing.T) {
	enc := NewEncoder()
	wire, err := enc.Encode(KindEventStart, 0, 0, []byte{byte(EventRace), '4', '2'})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(wire[HeaderSize:], []byte{1, '4', '2'}) {
		t.Errorf("event start payload = % X", wire[HeaderSize:])
	}
	if enc.Cipher().Salt() != CipherSeed {
		t.Error("clear packets must not advance the cipher")
	}
}

func TestEncode_LongAndSpecial(t *testing.T) {
	enc := NewEncoder()
	long := []byte(strings.Repeat("x", MaxPayloadSize))
	wire, err := enc.Encode(KindCommentary, 0, 0, long)
	if err != nil {
		t.Fatalf("Encode long: %v", err)
	}
	if h := ParseHeader([2]byte{wire[0], wire[1]}); h.Data != MaxPayloadSize {
		t.Errorf("long data = %d, want %d", h.Data, MaxPayloadSize)
	}

	wire, err = enc.Encode(KindCarPositionUpdate, 4, 17, nil)
	if err != nil {
		t.Fatalf("Encode special: %v", err)
	}
	if len(wire) != HeaderSize {
		t.Errorf("special packet length = %d, want %d", len(wire), HeaderSize)
	}
	if h := ParseHeader([2]byte{wire[0], wire[1]}); h.Data != 17 {
		t.Errorf("special data = %d, want 17", h.Data)
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		car     uint8
		payload []byte
	}{
		{"invalid kind", KindInvalid, 0, nil},
		{"marker kind", KindCarLastPacket, 1, nil},
		{"car kind without car", KindCarGap, 0, []byte("1")},
		{"car out of range", KindCarGap, 32, []byte("1")},
		{"system kind with car", KindNotice, 3, []byte("hi")},
		{"special with payload", KindCarLastAtom, 2, []byte{1}},
		{"short too large", KindCarDriver, 1, bytes.Repeat([]byte{'A'}, 15)},
		{"long too large", KindNotice, 0, bytes.Repeat([]byte{'A'}, MaxPayloadSize+1)},
		{"timestamp wrong size", KindTimestamp, 0, []byte{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewEncoder()
			if _, err := enc.Encode(tt.kind, tt.car, 0, tt.payload); err == nil {
				t.Error("expected error")
			}
			if len(enc.Bytes()) != 0 {
				t.Error("failed encode must not append bytes")
			}
		})
	}
}

func TestEncodeCleared(t *testing.T) {
	enc := NewEncoder()
	wire, err := enc.EncodeCleared(KindCarInterval, 12, uint8(ColourRed))
	if err != nil {
		t.Fatalf("EncodeCleared: %v", err)
	}
	h := ParseHeader([2]byte{wire[0], wire[1]})
	if h.Data>>3 != 0x0F {
		t.Errorf("cleared data = 0x%02X", h.Data)
	}
	if RuleShort.Length(h.Data) != 0 {
		t.Error("cleared packet should have length 0")
	}

	if _, err := enc.EncodeCleared(KindNotice, 0, 0); err == nil {
		t.Error("expected error for a long kind")
	}
}

func TestEncodeKeyframe_Width(t *testing.T) {
	enc := NewEncoder()
	small, err := enc.EncodeKeyframe(0x1234)
	if err != nil {
		t.Fatalf("EncodeKeyframe: %v", err)
	}
	if len(small) != HeaderSize+2 {
		t.Errorf("small keyframe length = %d", len(small))
	}
	large, err := enc.EncodeKeyframe(0x00123456)
	if err != nil {
		t.Fatalf("EncodeKeyframe: %v", err)
	}
	if len(large) != HeaderSize+4 {
		t.Errorf("large keyframe length = %d", len(large))
	}

	s := NewDecoder().Stream(NewMemorySource(enc.Bytes()))
	for _, want := range []uint32{0x1234, 0x00123456} {
		p, err := s.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if n, _ := p.KeyframeNumber(); n != want {
			t.Errorf("keyframe = 0x%X, want 0x%X", n, want)
		}
	}
}

func TestEncodeEventStart_BadKey(t *testing.T) {
	enc := NewEncoder()
	if _, err := enc.EncodeEventStart(EventRace, 1, "not hex"); err == nil {
		t.Error("expected error for invalid key")
	}
}

// ============================================================
// CBOR Record Tests
// ============================================================

func TestRecord_RoundTrip(t *testing.T) {
	enc := NewEncoder()
	mustEncode(t, enc, KindCarLapTime, 5, uint8(ColourGreen), "1:20.000")
	p, err := NewDecoder().Stream(NewMemorySource(enc.Bytes())).Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	ev := Event{Phase: PhaseLive, Packet: p}

	data, err := MarshalRecord(ev)
	if err != nil {
		t.Fatalf("MarshalRecord: %v", err)
	}
	if data[0] != 0x87 {
		t.Errorf("record should be a 7-element array, got major byte 0x%02X", data[0])
	}

	rec, err := UnmarshalRecord(data)
	if err != nil {
		t.Fatalf("UnmarshalRecord: %v", err)
	}
	if rec.Kind != "CAR_LAP_TIME" || rec.Phase != "live" {
		t.Errorf("record = %+v", rec)
	}

	back, err := rec.Event()
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if back.Phase != PhaseLive || back.Packet.Kind() != KindCarLapTime || back.Packet.Car() != 5 {
		t.Errorf("event = %s %s car %d", back.Phase, back.Packet.Kind(), back.Packet.Car())
	}
	if back.Packet.Text() != "1:20.000" || back.Packet.Colour() != ColourGreen {
		t.Errorf("payload = %q %s", back.Packet.Text(), back.Packet.Colour())
	}
	if back.Packet.Timestamp().UnixNano() != p.Timestamp().UnixNano() {
		t.Error("timestamp not preserved")
	}
}

func TestRecord_Errors(t *testing.T) {
	if _, err := UnmarshalRecord(nil); err == nil {
		t.Error("expected error for empty record")
	}
	if _, err := UnmarshalRecord([]byte{0xFF}); err == nil {
		t.Error("expected error for garbage")
	}
	if _, err := (Record{Phase: "live", Type: 14}).Event(); err == nil {
		t.Error("expected error for unknown system type")
	}
	if _, err := (Record{Phase: "later", Car: 1, Type: CarGap}).Event(); err == nil {
		t.Error("expected error for unknown phase")
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatPacket(t *testing.T) {
	enc := NewEncoder()
	mustEncode(t, enc, KindCarLapTime, 5, uint8(ColourWhite), "1:23.456")
	mustEncode(t, enc, KindTrackStatus, 0, 1, "4")
	mustEncode(t, enc, KindCarPositionUpdate, 2, 3, "")

	s := NewDecoder().Stream(NewMemorySource(enc.Bytes()))
	want := [][]string{
		{"CAR_LAP_TIME car=5", `Value: "1:23.456" (white)`},
		{"TRACK_STATUS data=", "Flag: SAFETY_CAR"},
		{"CAR_POSITION_UPDATE car=2", "Position: 3"},
	}
	for i, parts := range want {
		p, err := s.Next()
		if err != nil {
			t.Fatalf("packet %d: %v", i, err)
		}
		out := FormatPacket(p)
		for _, part := range parts {
			if !strings.Contains(out, part) {
				t.Errorf("packet %d output missing %q:\n%s", i, part, out)
			}
		}
	}
	if _, err := s.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestFormatEvent_Phase(t *testing.T) {
	p := NewPacket(Header{Type: SysLastPacket}, KindSysLastPacket, nil)
	out := FormatEvent(Event{Phase: PhaseReplay, Packet: p})
	if !strings.HasPrefix(out, "replay ") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "(no payload)") {
		t.Errorf("output = %q", out)
	}
}

func TestFormatKind_Invalid(t *testing.T) {
	if FormatKind(KindInvalid) != "UNKNOWN" {
		t.Errorf("FormatKind(KindInvalid) = %q", FormatKind(KindInvalid))
	}
}
