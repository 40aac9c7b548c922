// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package livetiming decodes the binary live-timing stream used by motorsport
// timing servers into typed packets.
//
// A stream is a sequence of variable-length packets. Each packet starts with a
// 2-byte header carrying three bit-fields (data, packet type, car) which select
// one of the registered packet kinds and that kind's payload length. Most
// payloads are protected by a rolling XOR cipher whose state is reset by the
// event-start and keyframe packets in the stream itself.
//
// A client joining mid-session first replays the most recent keyframe and then
// follows the live tail; Session implements that two-phase read.
package livetiming

// Wire layout
const (
	HeaderSize     = 2
	MaxPayloadSize = 127
)

// Cipher configuration
const (
	CipherSeed = 0x55555555
)

// KeepAliveByte is written by live transports when a read times out.
const KeepAliveByte = 0x10

// Car packet type codes (car field > 0)
const (
	CarPositionUpdate  = 0
	CarPosition        = 1
	CarNumber          = 2
	CarDriver          = 3
	CarGap             = 4
	CarInterval        = 5
	CarLapTime         = 6
	CarSector1         = 7
	CarPitLap1         = 8
	CarSector2         = 9
	CarPitLap2         = 10
	CarSector3         = 11
	CarPitLap3         = 12
	CarPitCount        = 13
	CarLastAtom        = 14
	CarPositionHistory = 15
	CarLastPacket      = 16 // end-of-range marker, does not fit the 4-bit field
)

// System packet type codes (car field == 0)
const (
	SysEventStart  = 1
	SysKeyframe    = 2
	SysCommentary  = 4
	SysNotice      = 6
	SysTimestamp   = 7
	SysWeather     = 9
	SysSpeedTrap   = 10
	SysTrackStatus = 11
	SysCopyright   = 12
	SysLastPacket  = 13
)

// EventKind is the session type announced by an event-start packet
type EventKind uint8

// Event kind values
const (
	EventRace       EventKind = 1
	EventPractice   EventKind = 2
	EventQualifying EventKind = 3
)

func (k EventKind) String() string {
	switch k {
	case EventRace:
		return "race"
	case EventPractice:
		return "practice"
	case EventQualifying:
		return "qualifying"
	default:
		return "unknown"
	}
}

// WeatherMetric identifies the value carried by a weather packet
type WeatherMetric uint8

// Weather metric values
const (
	WeatherSessionClock  WeatherMetric = 0
	WeatherTrackTemp     WeatherMetric = 1
	WeatherAirTemp       WeatherMetric = 2
	WeatherWetTrack      WeatherMetric = 3
	WeatherWindSpeed     WeatherMetric = 4
	WeatherHumidity      WeatherMetric = 5
	WeatherPressure      WeatherMetric = 6
	WeatherWindDirection WeatherMetric = 7
)

var weatherNames = [...]string{
	WeatherSessionClock:  "session clock",
	WeatherTrackTemp:     "track temperature",
	WeatherAirTemp:       "air temperature",
	WeatherWetTrack:      "wet track",
	WeatherWindSpeed:     "wind speed",
	WeatherHumidity:      "humidity",
	WeatherPressure:      "pressure",
	WeatherWindDirection: "wind direction",
}

func (m WeatherMetric) String() string {
	if int(m) < len(weatherNames) {
		return weatherNames[m]
	}
	return "unknown"
}

// Flag is the track flag state carried by a track status packet
type Flag uint8

// Flag values
const (
	FlagNone             Flag = 0
	FlagGreen            Flag = 1
	FlagYellow           Flag = 2
	FlagSafetyCarStandby Flag = 3
	FlagSafetyCar        Flag = 4
	FlagRed              Flag = 5
)

func (f Flag) String() string {
	switch f {
	case FlagGreen:
		return "GREEN"
	case FlagYellow:
		return "YELLOW"
	case FlagSafetyCarStandby:
		return "SC_STANDBY"
	case FlagSafetyCar:
		return "SAFETY_CAR"
	case FlagRed:
		return "RED"
	default:
		return "NONE"
	}
}

// Colour is the display colour carried in the low data bits of short car packets
type Colour uint8

// Colour values
const (
	ColourBlack   Colour = 0
	ColourWhite   Colour = 1
	ColourRed     Colour = 2
	ColourGreen   Colour = 3
	ColourMagenta Colour = 4
	ColourCyan    Colour = 5
	ColourYellow  Colour = 6
	ColourGrey    Colour = 7
)

var colourNames = [...]string{"black", "white", "red", "green", "magenta", "cyan", "yellow", "grey"}

func (c Colour) String() string {
	return colourNames[c&0x07]
}
