// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"errors"
	"testing"
	"time"
)

// ============================================================
// Header Tests
// ============================================================

func TestParseHeader_Fields(t *testing.T) {
	// data=0x0A type=6 car=5 -> bits 0x14C5, swapped on the wire
	h := ParseHeader([2]byte{0xC5, 0x14})
	if h.Data != 0x0A {
		t.Errorf("Data = 0x%02X, want 0x0A", h.Data)
	}
	if h.Type != 6 {
		t.Errorf("Type = %d, want 6", h.Type)
	}
	if h.Car != 5 {
		t.Errorf("Car = %d, want 5", h.Car)
	}
	if !h.IsCar() || h.IsSystem() {
		t.Error("car 5 header should be a car header")
	}
}

func TestParseHeader_System(t *testing.T) {
	h := ParseHeader([2]byte{0x40, 0x00})
	if h.Car != 0 || h.Type != 2 || h.Data != 0 {
		t.Errorf("got %+v, want data=0 type=2 car=0", h)
	}
	if !h.IsSystem() {
		t.Error("car 0 header should be a system header")
	}
}

func TestHeader_RoundTripAllValues(t *testing.T) {
	for v := 0; v <= 0xFFFF; v++ {
		raw := [2]byte{byte(v), byte(v >> 8)}
		h := ParseHeader(raw)
		if h.Data > 0x7F || h.Type > 0x0F || h.Car > 0x1F {
			t.Fatalf("field out of range for %04X: %+v", v, h)
		}
		if got := h.Bytes(); got != raw {
			t.Fatalf("round trip %02X%02X -> %+v -> %02X%02X", raw[0], raw[1], h, got[0], got[1])
		}
	}
}

func TestDecodeHeader_Short(t *testing.T) {
	_, err := DecodeHeader(NewMemorySource([]byte{0x01}))
	if !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestDecodeHeader_Empty(t *testing.T) {
	_, err := DecodeHeader(NewMemorySource(nil))
	if !errors.Is(err, ErrEndOfSource) {
		t.Errorf("expected ErrEndOfSource, got %v", err)
	}
}

// ============================================================
// Cipher Tests
// ============================================================

func TestCipher_KnownKeystream(t *testing.T) {
	c := NewCipher()
	c.SetKeyValue(0x12345678)
	got := c.Decrypt([]byte{0, 0, 0, 0})
	want := []byte{0xD2, 0x69, 0x4C, 0xA6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keystream byte %d = 0x%02X, want 0x%02X", i, got[i], want[i])
		}
	}
	if c.Salt() != 0x0E09F4A6 {
		t.Errorf("salt = 0x%08X, want 0x0E09F4A6", c.Salt())
	}
}

func TestCipher_ZeroKeyShiftsOnly(t *testing.T) {
	c := NewCipher()
	got := c.Decrypt([]byte{0, 0, 0})
	want := []byte{0xAA, 0x55, 0xAA}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = 0x%02X, want 0x%02X", i, got[i], want[i])
		}
	}
	if c.Salt() != 0x0AAAAAAA {
		t.Errorf("salt = 0x%08X, want 0x0AAAAAAA", c.Salt())
	}
}

func TestCipher_EmptyInputDoesNotStep(t *testing.T) {
	c := NewCipher()
	c.SetKeyValue(0xDEADBEEF)
	out := c.Decrypt(nil)
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty non-nil output, got %v", out)
	}
	if c.Salt() != CipherSeed {
		t.Errorf("salt moved to 0x%08X on empty input", c.Salt())
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	plain := []byte("1:23.456 PIT")
	enc := NewCipher()
	enc.SetKeyValue(0xCAFEBABE)
	dec := NewCipher()
	dec.SetKeyValue(0xCAFEBABE)

	got := dec.Decrypt(enc.Encrypt(plain))
	if string(got) != string(plain) {
		t.Errorf("round trip = %q, want %q", got, plain)
	}
	if enc.Salt() != dec.Salt() {
		t.Errorf("salts diverged: 0x%08X vs 0x%08X", enc.Salt(), dec.Salt())
	}
}

func TestCipher_ResetKeepsKey(t *testing.T) {
	c := NewCipher()
	if err := c.SetKey("12345678"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	c.Decrypt([]byte{1, 2, 3})
	c.Reset()
	if c.Salt() != CipherSeed {
		t.Errorf("salt after reset = 0x%08X", c.Salt())
	}
	if c.Key() != 0x12345678 {
		t.Errorf("key after reset = 0x%08X", c.Key())
	}
}

func TestCipher_SetKeyKeepsSalt(t *testing.T) {
	c := NewCipher()
	c.Decrypt([]byte{1})
	salt := c.Salt()
	if err := c.SetKey("0xABCDEF01"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if c.Salt() != salt {
		t.Error("SetKey must not touch the salt")
	}
	if c.Key() != 0xABCDEF01 {
		t.Errorf("key = 0x%08X, want 0xABCDEF01", c.Key())
	}
}

func TestCipher_SetKeyInvalid(t *testing.T) {
	c := NewCipher()
	for _, key := range []string{"", "xyz", "123456789"} {
		if err := c.SetKey(key); err == nil {
			t.Errorf("SetKey(%q) should fail", key)
		}
	}
}

// ============================================================
// Length Rule Tests
// ============================================================

func TestLengthRules(t *testing.T) {
	tests := []struct {
		name string
		rule LengthRule
		data uint8
		want int
	}{
		{"short cleared sentinel", RuleShort, 0x78, 0},
		{"short cleared with colour", RuleShort, 0x7B, 0},
		{"short one byte", RuleShort, 0x08, 1},
		{"short zero", RuleShort, 0x03, 0},
		{"short max", RuleShort, 0x70, 14},
		{"long max", RuleLong, 127, 127},
		{"long zero", RuleLong, 0, 0},
		{"timestamp", RuleTimestamp, 0x55, 2},
		{"special", RuleSpecial, 0x7F, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Length(tt.data); got != tt.want {
				t.Errorf("%s.Length(0x%02X) = %d, want %d", tt.rule, tt.data, got, tt.want)
			}
		})
	}
}

// ============================================================
// Registry Tests
// ============================================================

func TestResolve(t *testing.T) {
	tests := []struct {
		car, typ uint8
		want     Kind
	}{
		{0, 2, KindKeyframe},
		{0, 1, KindEventStart},
		{0, 7, KindTimestamp},
		{0, 13, KindSysLastPacket},
		{5, 6, KindCarLapTime},
		{31, 0, KindCarPositionUpdate},
		{1, 15, KindCarPositionHistory},
		{12, 8, KindCarPitLap1},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.car, tt.typ)
		if err != nil {
			t.Errorf("Resolve(%d, %d): %v", tt.car, tt.typ, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%d, %d) = %s, want %s", tt.car, tt.typ, got, tt.want)
		}
	}
}

func TestResolve_Unknown(t *testing.T) {
	for _, typ := range []uint8{0, 3, 5, 8, 14, 15} {
		if _, err := Resolve(0, typ); !errors.Is(err, ErrUnknownPacketType) {
			t.Errorf("Resolve(0, %d) = %v, want ErrUnknownPacketType", typ, err)
		}
	}
}

func TestKinds_Table(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 27 {
		t.Fatalf("expected 27 kinds, got %d", len(kinds))
	}
	cars := 0
	for _, k := range kinds {
		if k.IsCar() {
			cars++
		}
		if k.String() == "" || k.String() == "INVALID" {
			t.Errorf("kind %d has no name", k)
		}
		if k.Code() > 0x0F {
			continue
		}
		car := uint8(0)
		if k.IsCar() {
			car = 1
		}
		got, err := Resolve(car, k.Code())
		if err != nil || got != k {
			t.Errorf("Resolve(%d, %d) = %s, %v; want %s", car, k.Code(), got, err, k)
		}
	}
	if cars != 17 {
		t.Errorf("expected 17 car kinds, got %d", cars)
	}
}

func TestKind_StaticProperties(t *testing.T) {
	tests := []struct {
		kind      Kind
		rule      LengthRule
		encrypted bool
	}{
		{KindCarPositionUpdate, RuleSpecial, false},
		{KindCarLapTime, RuleShort, true},
		{KindCarPositionHistory, RuleLong, true},
		{KindEventStart, RuleShort, false},
		{KindKeyframe, RuleShort, false},
		{KindTimestamp, RuleTimestamp, true},
		{KindCommentary, RuleLong, true},
		{KindWeather, RuleShort, true},
	}
	for _, tt := range tests {
		if tt.kind.Rule() != tt.rule {
			t.Errorf("%s rule = %s, want %s", tt.kind, tt.kind.Rule(), tt.rule)
		}
		if tt.kind.Encrypted() != tt.encrypted {
			t.Errorf("%s encrypted = %v, want %v", tt.kind, tt.kind.Encrypted(), tt.encrypted)
		}
	}
}

// ============================================================
// Payload Accessor Tests
// ============================================================

func sysPacket(kind Kind, data uint8, payload []byte) *Packet {
	return NewPacket(Header{Data: data, Type: kind.Code()}, kind, payload)
}

func TestEventStart(t *testing.T) {
	p := sysPacket(KindEventStart, 0, []byte{byte(EventQualifying), '7', '0', '6', '6'})
	ev, err := p.EventStart()
	if err != nil {
		t.Fatalf("EventStart: %v", err)
	}
	if ev.Kind != EventQualifying || ev.Session != 7066 {
		t.Errorf("got %+v, want qualifying session 7066", ev)
	}
}

func TestEventStart_Errors(t *testing.T) {
	if _, err := sysPacket(KindEventStart, 0, nil).EventStart(); !errors.Is(err, ErrPayloadTooShort) {
		t.Errorf("empty payload: %v", err)
	}
	if _, err := sysPacket(KindEventStart, 0, []byte{1, 'x'}).EventStart(); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("non-numeric session: %v", err)
	}
	if _, err := sysPacket(KindNotice, 0, []byte{1}).EventStart(); !errors.Is(err, ErrWrongKind) {
		t.Errorf("wrong kind: %v", err)
	}
}

func TestKeyframeNumber(t *testing.T) {
	p := sysPacket(KindKeyframe, 0, []byte{0x34, 0x12})
	n, err := p.KeyframeNumber()
	if err != nil {
		t.Fatalf("KeyframeNumber: %v", err)
	}
	if n != 0x1234 {
		t.Errorf("keyframe = 0x%X, want 0x1234", n)
	}
}

func TestElapsed(t *testing.T) {
	p := sysPacket(KindTimestamp, 0, []byte{0x10, 0x0E})
	d, err := p.Elapsed()
	if err != nil {
		t.Fatalf("Elapsed: %v", err)
	}
	if d != 3600*time.Second {
		t.Errorf("elapsed = %s, want 1h0m0s", d)
	}
}

func TestCommentary(t *testing.T) {
	tests := []struct {
		name      string
		payload   []byte
		wantText  string
		wantFinal bool
	}{
		{"ascii", append([]byte{0, 1}, "Safety car in"...), "Safety car in", true},
		{"continued", append([]byte{0, 0}, "Hamilton"...), "Hamilton", false},
		{"double encoded", append([]byte{0, 1}, 0xC3, 0x83, 0xC2, 0xA9), "é", true},
		{"already correct", append([]byte{0, 1}, "é"...), "é", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := sysPacket(KindCommentary, 0, tt.payload).Commentary()
			if err != nil {
				t.Fatalf("Commentary: %v", err)
			}
			if c.Text != tt.wantText {
				t.Errorf("text = %q, want %q", c.Text, tt.wantText)
			}
			if c.Final != tt.wantFinal {
				t.Errorf("final = %v, want %v", c.Final, tt.wantFinal)
			}
		})
	}
}

func TestSpeedTrap(t *testing.T) {
	payload := append([]byte{3}, "HAM\r312\rALO\r310\rVET\r309"...)
	trap, err := sysPacket(KindSpeedTrap, 0, payload).SpeedTrap()
	if err != nil {
		t.Fatalf("SpeedTrap: %v", err)
	}
	if trap.Trap != 3 {
		t.Errorf("trap = %d, want 3", trap.Trap)
	}
	want := []SpeedEntry{{"HAM", 312}, {"ALO", 310}, {"VET", 309}}
	if len(trap.Entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(trap.Entries), len(want))
	}
	for i := range want {
		if trap.Entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, trap.Entries[i], want[i])
		}
	}
}

func TestSpeedTrap_AtMostSix(t *testing.T) {
	payload := []byte{1}
	for i := 0; i < 8; i++ {
		payload = append(payload, "ABC\r300\r"...)
	}
	trap, err := sysPacket(KindSpeedTrap, 0, payload).SpeedTrap()
	if err != nil {
		t.Fatalf("SpeedTrap: %v", err)
	}
	if len(trap.Entries) != 6 {
		t.Errorf("got %d entries, want 6", len(trap.Entries))
	}
}

func TestWeather(t *testing.T) {
	w, err := sysPacket(KindWeather, 4<<3|byte(WeatherTrackTemp), []byte("31.5")).Weather()
	if err != nil {
		t.Fatalf("Weather: %v", err)
	}
	if w.Metric != WeatherTrackTemp || w.Value != "31.5" {
		t.Errorf("got %+v, want track temperature 31.5", w)
	}
}

func TestTrackStatus(t *testing.T) {
	ts, err := sysPacket(KindTrackStatus, 1<<3|1, []byte("4")).TrackStatus()
	if err != nil {
		t.Fatalf("TrackStatus: %v", err)
	}
	if ts.Flag != FlagSafetyCar {
		t.Errorf("flag = %s, want SAFETY_CAR", ts.Flag)
	}
}

func TestCarAccessors(t *testing.T) {
	update := NewPacket(Header{Data: 7, Type: CarPositionUpdate, Car: 9}, KindCarPositionUpdate, nil)
	pos, err := update.Position()
	if err != nil || pos != 7 {
		t.Errorf("Position() = %d, %v; want 7", pos, err)
	}
	if update.Payload() == nil || update.Length() != 0 {
		t.Error("special packets keep an empty non-nil payload")
	}

	gap := NewPacket(Header{Data: 4<<3 | byte(ColourYellow), Type: CarGap, Car: 9}, KindCarGap, []byte("1.25"))
	if gap.Colour() != ColourYellow {
		t.Errorf("colour = %s, want yellow", gap.Colour())
	}
	if gap.Text() != "1.25" {
		t.Errorf("text = %q", gap.Text())
	}
	if gap.Car() != 9 {
		t.Errorf("car = %d, want 9", gap.Car())
	}
}

// ============================================================
// Statistics Tests
// ============================================================

func TestPacket_PayloadIsImmutable(t *testing.T) {
	gap := NewPacket(Header{Data: 4 << 3, Type: CarGap, Car: 9}, KindCarGap, []byte("1.25"))
	payload := gap.Payload()
	payload[0] = 'X'
	if gap.Text() != "1.25" {
		t.Errorf("text after mutating Payload() = %q", gap.Text())
	}

	history := NewPacket(Header{Data: 3, Type: CarPositionHistory, Car: 9}, KindCarPositionHistory, []byte{1, 2, 3})
	laps, err := history.PositionHistory()
	if err != nil {
		t.Fatalf("PositionHistory: %v", err)
	}
	laps[0] = 20
	again, _ := history.PositionHistory()
	if again[0] != 1 {
		t.Errorf("position history after mutation = %v", again)
	}

	record := NewRecord(Event{Phase: PhaseLive, Packet: gap})
	record.Payload[1] = 'X'
	if gap.Text() != "1.25" {
		t.Errorf("text after mutating record = %q", gap.Text())
	}
}

func TestStatistics_Counts(t *testing.T) {
	s := NewStatistics()
	car := NewPacket(Header{Data: 8, Type: CarGap, Car: 1}, KindCarGap, []byte("1"))
	sys := sysPacket(KindNotice, 3, []byte("abc"))

	s.PacketDecoded(car)
	s.PacketDecoded(sys)
	s.RecordEvent(Event{Phase: PhaseReplay, Packet: car})
	s.RecordEvent(Event{Phase: PhaseLive, Packet: sys})
	s.DecodeFailed(ErrMalformedHeader)
	s.DecodeFailed(ErrUnknownPacketType)
	s.CipherReset(ResetKeyframe)

	snap := s.Snapshot()
	if snap.TotalPackets != 2 || snap.CarPackets != 1 || snap.SystemPackets != 1 {
		t.Errorf("packet counters wrong: %+v", snap)
	}
	if snap.PayloadBytes != 4 {
		t.Errorf("payload bytes = %d, want 4", snap.PayloadBytes)
	}
	if snap.ReplayEvents != 1 || snap.LiveEvents != 1 {
		t.Errorf("phase counters wrong: %+v", snap)
	}
	if snap.Errors() != 2 || snap.MalformedHeaders != 1 || snap.UnknownTypes != 1 {
		t.Errorf("error counters wrong: %+v", snap)
	}
	if snap.KeyframeResets != 1 {
		t.Errorf("keyframe resets = %d, want 1", snap.KeyframeResets)
	}
	if s.String() == "" {
		t.Error("String() should not be empty")
	}

	s.Reset()
	if s.Snapshot().TotalPackets != 0 {
		t.Error("Reset() should clear counters")
	}
}
