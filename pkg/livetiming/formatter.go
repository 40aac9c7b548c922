// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"fmt"
	"strings"
)

// FormatEvent formats a phase-tagged packet
func FormatEvent(ev Event) string {
	return fmt.Sprintf("%-6s %s", ev.Phase, FormatPacket(ev.Packet))
}

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	timestamp := p.timestamp.Format("15:04:05.000")

	var result string
	if p.IsCar() {
		result = fmt.Sprintf("[%s] %s car=%d data=0x%02X len=%d\n", timestamp, FormatKind(p.kind), p.Car(), p.Data(), p.Length())
	} else {
		result = fmt.Sprintf("[%s] %s data=0x%02X len=%d\n", timestamp, FormatKind(p.kind), p.Data(), p.Length())
	}
	return result + FormatPayload(p)
}

// FormatKind returns the human-readable name for a packet kind
func FormatKind(k Kind) string {
	if !k.Valid() {
		return "UNKNOWN"
	}
	return k.String()
}

// FormatPayload formats a packet payload based on its kind
func FormatPayload(p *Packet) string {
	switch p.kind {
	case KindCarPositionUpdate:
		pos, _ := p.Position()
		return fmt.Sprintf("  Position: %d\n", pos)

	case KindCarPositionHistory:
		history, _ := p.PositionHistory()
		laps := make([]string, len(history))
		for i, pos := range history {
			laps[i] = fmt.Sprintf("%d", pos)
		}
		return fmt.Sprintf("  History: [%s]\n", strings.Join(laps, " "))

	case KindCarLastAtom, KindCarLastPacket, KindSysLastPacket:
		return "  (no payload)\n"

	case KindEventStart:
		ev, err := p.EventStart()
		if err != nil {
			break
		}
		return fmt.Sprintf("  Event: %s, Session: %d\n", ev.Kind, ev.Session)

	case KindKeyframe:
		n, err := p.KeyframeNumber()
		if err != nil {
			break
		}
		return fmt.Sprintf("  Keyframe: %d\n", n)

	case KindTimestamp:
		elapsed, err := p.Elapsed()
		if err != nil {
			break
		}
		return fmt.Sprintf("  Elapsed: %s\n", elapsed)

	case KindCommentary:
		c, err := p.Commentary()
		if err != nil {
			break
		}
		if c.Final {
			return fmt.Sprintf("  Commentary: %q (final)\n", c.Text)
		}
		return fmt.Sprintf("  Commentary: %q\n", c.Text)

	case KindSpeedTrap:
		trap, err := p.SpeedTrap()
		if err != nil {
			break
		}
		result := fmt.Sprintf("  Speed trap %d:\n", trap.Trap)
		for _, e := range trap.Entries {
			result += fmt.Sprintf("    %-4s %d km/h\n", e.Driver, e.Speed)
		}
		return result

	case KindWeather:
		w, _ := p.Weather()
		return fmt.Sprintf("  %s: %s\n", w.Metric, w.Value)

	case KindTrackStatus:
		ts, _ := p.TrackStatus()
		if ts.Status == 1 {
			return fmt.Sprintf("  Flag: %s\n", ts.Flag)
		}
		return fmt.Sprintf("  Status %d: %q\n", ts.Status, ts.Value)

	case KindNotice, KindCopyright:
		return fmt.Sprintf("  Text: %q\n", p.Text())

	default:
		if p.IsCar() {
			if p.Length() == 0 {
				return fmt.Sprintf("  (cleared, %s)\n", p.Colour())
			}
			return fmt.Sprintf("  Value: %q (%s)\n", p.Text(), p.Colour())
		}
	}

	return formatHex(p.payload)
}

func formatHex(payload []byte) string {
	if len(payload) == 0 {
		return "  (no payload)\n"
	}
	result := "  Payload: "
	for i, b := range payload {
		if i > 0 && i%16 == 0 {
			result += "\n           "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}
