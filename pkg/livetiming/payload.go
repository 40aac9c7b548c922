// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Speed trap entries per packet
const maxSpeedEntries = 6

var speedEntryPattern = regexp.MustCompile(`([[:alpha:]]+)\r([[:digit:]]+)`)

// EventStart is the payload of an event-start packet
type EventStart struct {
	Kind    EventKind
	Session int
}

// Commentary is one segment of a commentary message
type Commentary struct {
	Final bool // last segment of a multi-packet message
	Text  string
}

// SpeedEntry is one driver/speed pair from a speed trap packet
type SpeedEntry struct {
	Driver string
	Speed  int
}

// SpeedTrap is the payload of a speed trap packet
type SpeedTrap struct {
	Trap    uint8
	Entries []SpeedEntry
}

// Weather is the payload of a weather packet
type Weather struct {
	Metric WeatherMetric
	Value  string
}

// TrackStatus is the payload of a track status packet
type TrackStatus struct {
	Status uint8 // header data low bits, 1 carries a flag
	Flag   Flag
	Value  string
}

func (p *Packet) expect(kinds ...Kind) error {
	for _, k := range kinds {
		if p.kind == k {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWrongKind, p.kind)
}

func (p *Packet) need(n int) error {
	if len(p.payload) < n {
		return fmt.Errorf("%w: %s has %d bytes, need %d", ErrPayloadTooShort, p.kind, len(p.payload), n)
	}
	return nil
}

// EventStart decodes an event-start payload: kind byte then ASCII decimal session id
func (p *Packet) EventStart() (EventStart, error) {
	if err := p.expect(KindEventStart); err != nil {
		return EventStart{}, err
	}
	if err := p.need(1); err != nil {
		return EventStart{}, err
	}
	digits := strings.TrimSpace(string(p.payload[1:]))
	session, err := strconv.Atoi(digits)
	if err != nil {
		return EventStart{}, fmt.Errorf("%w: session id %q", ErrInvalidPayload, digits)
	}
	return EventStart{Kind: EventKind(p.payload[0]), Session: session}, nil
}

// KeyframeNumber decodes a keyframe marker: payload bytes reversed, read as unsigned binary
func (p *Packet) KeyframeNumber() (uint32, error) {
	if err := p.expect(KindKeyframe); err != nil {
		return 0, err
	}
	if len(p.payload) > 4 {
		return 0, fmt.Errorf("%w: keyframe number of %d bytes", ErrInvalidPayload, len(p.payload))
	}
	var n uint32
	for i := len(p.payload) - 1; i >= 0; i-- {
		n = n<<8 | uint32(p.payload[i])
	}
	return n, nil
}

// Elapsed decodes a timestamp packet: little-endian uint16 seconds
func (p *Packet) Elapsed() (time.Duration, error) {
	if err := p.expect(KindTimestamp); err != nil {
		return 0, err
	}
	if err := p.need(2); err != nil {
		return 0, err
	}
	return time.Duration(binary.LittleEndian.Uint16(p.payload)) * time.Second, nil
}

// Commentary decodes a commentary segment.
// The server double-encodes the text (UTF-8 bytes read as ISO-8859-1 and
// encoded to UTF-8 again); the text is mapped back through ISO-8859-1.
func (p *Packet) Commentary() (Commentary, error) {
	if err := p.expect(KindCommentary); err != nil {
		return Commentary{}, err
	}
	if err := p.need(2); err != nil {
		return Commentary{}, err
	}
	return Commentary{
		Final: p.payload[1] == 1,
		Text:  reencodeLatin1(p.payload[2:]),
	}, nil
}

// reencodeLatin1 undoes the upstream double encoding. Text that was not
// double-encoded is returned unchanged.
func reencodeLatin1(raw []byte) string {
	fixed, err := charmap.ISO8859_1.NewEncoder().Bytes(raw)
	if err != nil || !utf8.Valid(fixed) {
		return string(raw)
	}
	return string(fixed)
}

// SpeedTrap decodes a speed trap packet: trap id then up to six letters\rdigits pairs
func (p *Packet) SpeedTrap() (SpeedTrap, error) {
	if err := p.expect(KindSpeedTrap); err != nil {
		return SpeedTrap{}, err
	}
	if err := p.need(1); err != nil {
		return SpeedTrap{}, err
	}
	trap := SpeedTrap{Trap: p.payload[0]}
	for _, m := range speedEntryPattern.FindAllSubmatch(p.payload[1:], maxSpeedEntries) {
		speed, err := strconv.Atoi(string(m[2]))
		if err != nil {
			return SpeedTrap{}, fmt.Errorf("%w: speed %q", ErrInvalidPayload, m[2])
		}
		trap.Entries = append(trap.Entries, SpeedEntry{Driver: string(m[1]), Speed: speed})
	}
	return trap, nil
}

// Weather decodes a weather packet; the metric comes from the header data field
func (p *Packet) Weather() (Weather, error) {
	if err := p.expect(KindWeather); err != nil {
		return Weather{}, err
	}
	return Weather{
		Metric: WeatherMetric(p.header.Data & 0x07),
		Value:  string(p.payload),
	}, nil
}

// TrackStatus decodes a track status packet
func (p *Packet) TrackStatus() (TrackStatus, error) {
	if err := p.expect(KindTrackStatus); err != nil {
		return TrackStatus{}, err
	}
	ts := TrackStatus{Status: p.header.Data & 0x07, Value: string(p.payload)}
	if ts.Status == 1 && len(p.payload) > 0 && p.payload[0] >= '0' && p.payload[0] <= '9' {
		ts.Flag = Flag(p.payload[0] - '0')
	}
	return ts, nil
}

// Text returns the payload as a string (car fields, notice, copyright)
func (p *Packet) Text() string {
	return string(p.payload)
}

// Colour returns the display colour of a short car packet
func (p *Packet) Colour() Colour {
	return Colour(p.header.Data & 0x07)
}

// Position returns the new position carried by a position update header
func (p *Packet) Position() (uint8, error) {
	if err := p.expect(KindCarPositionUpdate); err != nil {
		return 0, err
	}
	return p.header.Data, nil
}

// PositionHistory returns the per-lap positions of a position history packet
func (p *Packet) PositionHistory() ([]uint8, error) {
	if err := p.expect(KindCarPositionHistory); err != nil {
		return nil, err
	}
	return append([]uint8{}, p.payload...), nil
}
