// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import "fmt"

// LengthRule computes a payload length from the header data field
type LengthRule uint8

// Length rules
const (
	RuleSpecial   LengthRule = iota // no payload
	RuleShort                       // data >> 3, 15 means cleared
	RuleLong                        // data
	RuleTimestamp                   // fixed 2 bytes
)

// shortCleared is the short-rule sentinel for "no payload"
const shortCleared = 0x0F

// Length returns the payload byte count for a header data field
func (r LengthRule) Length(data uint8) int {
	switch r {
	case RuleShort:
		n := int(data&0x7F) >> 3
		if n == shortCleared {
			return 0
		}
		return n
	case RuleLong:
		return int(data & 0x7F)
	case RuleTimestamp:
		return 2
	default:
		return 0
	}
}

func (r LengthRule) String() string {
	switch r {
	case RuleSpecial:
		return "special"
	case RuleShort:
		return "short"
	case RuleLong:
		return "long"
	case RuleTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Kind is the closed set of packet variants
type Kind uint8

// Packet kinds. KindInvalid is never produced by Resolve.
const (
	KindInvalid Kind = iota

	// Car family
	KindCarPositionUpdate
	KindCarPosition
	KindCarNumber
	KindCarDriver
	KindCarGap
	KindCarInterval
	KindCarLapTime
	KindCarSector1
	KindCarPitLap1
	KindCarSector2
	KindCarPitLap2
	KindCarSector3
	KindCarPitLap3
	KindCarPitCount
	KindCarLastAtom
	KindCarPositionHistory
	KindCarLastPacket

	// System family
	KindEventStart
	KindKeyframe
	KindCommentary
	KindNotice
	KindTimestamp
	KindWeather
	KindSpeedTrap
	KindTrackStatus
	KindCopyright
	KindSysLastPacket

	kindCount
)

type kindInfo struct {
	name      string
	car       bool
	code      uint8
	rule      LengthRule
	encrypted bool
}

var kindTable = [kindCount]kindInfo{
	KindInvalid: {name: "INVALID"},

	KindCarPositionUpdate:  {"CAR_POSITION_UPDATE", true, CarPositionUpdate, RuleSpecial, false},
	KindCarPosition:        {"CAR_POSITION", true, CarPosition, RuleShort, true},
	KindCarNumber:          {"CAR_NUMBER", true, CarNumber, RuleShort, true},
	KindCarDriver:          {"CAR_DRIVER", true, CarDriver, RuleShort, true},
	KindCarGap:             {"CAR_GAP", true, CarGap, RuleShort, true},
	KindCarInterval:        {"CAR_INTERVAL", true, CarInterval, RuleShort, true},
	KindCarLapTime:         {"CAR_LAP_TIME", true, CarLapTime, RuleShort, true},
	KindCarSector1:         {"CAR_SECTOR_1", true, CarSector1, RuleShort, true},
	KindCarPitLap1:         {"CAR_PIT_LAP_1", true, CarPitLap1, RuleShort, true},
	KindCarSector2:         {"CAR_SECTOR_2", true, CarSector2, RuleShort, true},
	KindCarPitLap2:         {"CAR_PIT_LAP_2", true, CarPitLap2, RuleShort, true},
	KindCarSector3:         {"CAR_SECTOR_3", true, CarSector3, RuleShort, true},
	KindCarPitLap3:         {"CAR_PIT_LAP_3", true, CarPitLap3, RuleShort, true},
	KindCarPitCount:        {"CAR_PIT_COUNT", true, CarPitCount, RuleShort, true},
	KindCarLastAtom:        {"CAR_LAST_ATOM", true, CarLastAtom, RuleSpecial, false},
	KindCarPositionHistory: {"CAR_POSITION_HISTORY", true, CarPositionHistory, RuleLong, true},
	KindCarLastPacket:      {"CAR_LAST_PACKET", true, CarLastPacket, RuleSpecial, false},

	KindEventStart:    {"EVENT_START", false, SysEventStart, RuleShort, false},
	KindKeyframe:      {"KEYFRAME", false, SysKeyframe, RuleShort, false},
	KindCommentary:    {"COMMENTARY", false, SysCommentary, RuleLong, true},
	KindNotice:        {"NOTICE", false, SysNotice, RuleLong, true},
	KindTimestamp:     {"TIMESTAMP", false, SysTimestamp, RuleTimestamp, true},
	KindWeather:       {"WEATHER", false, SysWeather, RuleShort, true},
	KindSpeedTrap:     {"SPEED_TRAP", false, SysSpeedTrap, RuleLong, true},
	KindTrackStatus:   {"TRACK_STATUS", false, SysTrackStatus, RuleShort, true},
	KindCopyright:     {"COPYRIGHT", false, SysCopyright, RuleLong, true},
	KindSysLastPacket: {"SYS_LAST_PACKET", false, SysLastPacket, RuleSpecial, false},
}

// Lookup tables indexed by the 4-bit packet type field
var (
	carKinds [16]Kind
	sysKinds [16]Kind
)

func init() {
	for k := KindInvalid + 1; k < kindCount; k++ {
		info := kindTable[k]
		if int(info.code) >= len(carKinds) {
			continue
		}
		if info.car {
			carKinds[info.code] = k
		} else {
			sysKinds[info.code] = k
		}
	}
}

// Resolve maps header fields to a packet kind. Any non-zero car selects the
// car family; car numbers themselves are not validated.
func Resolve(car, packetType uint8) (Kind, error) {
	var k Kind
	if int(packetType) < len(carKinds) {
		if car != 0 {
			k = carKinds[packetType]
		} else {
			k = sysKinds[packetType]
		}
	}
	if k == KindInvalid {
		family := "system"
		if car != 0 {
			family = "car"
		}
		return KindInvalid, fmt.Errorf("%w: %s type %d", ErrUnknownPacketType, family, packetType)
	}
	return k, nil
}

// Kinds returns every valid kind in declaration order
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount-1)
	for k := KindInvalid + 1; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k Kind) info() kindInfo {
	if k >= kindCount {
		return kindTable[KindInvalid]
	}
	return kindTable[k]
}

// Valid reports whether k is a registered kind
func (k Kind) Valid() bool {
	return k > KindInvalid && k < kindCount
}

// Rule returns the kind's payload length rule
func (k Kind) Rule() LengthRule {
	return k.info().rule
}

// Encrypted reports whether the kind's payload passes through the cipher
func (k Kind) Encrypted() bool {
	return k.info().encrypted
}

// IsCar reports whether the kind belongs to the car family
func (k Kind) IsCar() bool {
	return k.info().car
}

// Code returns the packet type code of the kind
func (k Kind) Code() uint8 {
	return k.info().code
}

func (k Kind) String() string {
	return k.info().name
}
