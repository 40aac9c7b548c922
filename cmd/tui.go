// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/trackside/pkg/livetiming"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for skipped packets, false for information
}

// Session state gathered from system packets
type sessionState struct {
	event          livetiming.EventStart
	hasEvent       bool
	phase          livetiming.Phase
	flag           livetiming.Flag
	elapsed        time.Duration
	weather        map[livetiming.WeatherMetric]string
	commentary     string
	commentaryDone bool // last segment carried the final flag
	notice         string
}

// TUI model
type model struct {
	sourceName    string
	statsInterval int
	showAll       bool
	stats         *livetiming.Statistics
	session       sessionState
	eventLog      []logEntry
	maxLogEntries int
	logView       viewport.Model
	width         int
	height        int
	finished      bool
	quitting      bool
}

// Messages
type tickMsg time.Time
type eventMsg struct {
	event livetiming.Event
}
type failureMsg struct {
	err error
}
type resetMsg struct {
	reason livetiming.ResetReason
}
type sessionEndMsg struct {
	err error
}

func initialModel(sourceName string, statsInterval int, showAll bool, stats *livetiming.Statistics) model {
	return model{
		sourceName:    sourceName,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         stats,
		session:       sessionState{weather: make(map[livetiming.WeatherMetric]string)},
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 500,
		logView:       viewport.New(76, 10),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.eventLog = m.eventLog[:0]
			m.refreshLog()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logView.Width = max(msg.Width-4, 20)
		m.logView.Height = max(msg.Height-headerLines, 5)
		m.refreshLog()

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case eventMsg:
		m.applyEvent(msg.event)

	case failureMsg:
		m.addLogEntry(fmt.Sprintf("SKIPPED: %v", msg.err), true)

	case resetMsg:
		if msg.reason == livetiming.ResetKeyframe {
			m.addLogEntry("Keyframe, cipher reset", false)
		}

	case sessionEndMsg:
		m.finished = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Session ended: %v", msg.err), true)
		} else {
			m.addLogEntry("Session ended", false)
		}
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

// applyEvent updates the session panel from system packets
func (m *model) applyEvent(ev livetiming.Event) {
	p := ev.Packet
	m.session.phase = ev.Phase

	switch p.Kind() {
	case livetiming.KindEventStart:
		if start, err := p.EventStart(); err == nil {
			m.session.event = start
			m.session.hasEvent = true
			m.addLogEntry(fmt.Sprintf("%s session %d started", start.Kind, start.Session), false)
		}
	case livetiming.KindTimestamp:
		if elapsed, err := p.Elapsed(); err == nil {
			m.session.elapsed = elapsed
		}
	case livetiming.KindTrackStatus:
		if ts, err := p.TrackStatus(); err == nil && ts.Status == 1 && ts.Flag != m.session.flag {
			m.session.flag = ts.Flag
			m.addLogEntry(fmt.Sprintf("Flag: %s", ts.Flag), false)
		}
	case livetiming.KindWeather:
		if w, err := p.Weather(); err == nil {
			m.session.weather[w.Metric] = w.Value
		}
	case livetiming.KindCommentary:
		if c, err := p.Commentary(); err == nil {
			if m.session.commentaryDone {
				m.session.commentary = ""
			}
			m.session.commentary += c.Text
			m.session.commentaryDone = c.Final
		}
	case livetiming.KindNotice:
		m.session.notice = p.Text()
	}

	if m.showAll {
		m.addLogEntry(fmt.Sprintf("%-6s %s", ev.Phase, describePacket(p)), false)
	}
}

// describePacket returns a one-line summary of a packet
func describePacket(p *livetiming.Packet) string {
	if p.IsCar() {
		if p.Length() > 0 {
			return fmt.Sprintf("%s car %d: %s", p.Kind(), p.Car(), p.Text())
		}
		return fmt.Sprintf("%s car %d", p.Kind(), p.Car())
	}
	return fmt.Sprintf("%s (%d bytes)", p.Kind(), p.Length())
}

func (m *model) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
	m.refreshLog()
}

// refreshLog re-renders the log into the viewport, following the tail
func (m *model) refreshLog() {
	following := m.logView.AtBottom()
	var b strings.Builder
	if len(m.eventLog) == 0 {
		b.WriteString(mutedStyle.Render("  (no events yet)"))
	}
	for _, entry := range m.eventLog {
		timestamp := mutedStyle.Render(entry.timestamp.Format("15:04:05.000"))
		if entry.isError {
			b.WriteString(timestamp + " " + errorStyle.Render("✗ "+entry.message) + "\n")
		} else {
			b.WriteString(timestamp + " " + infoStyle.Render("ℹ "+entry.message) + "\n")
		}
	}
	m.logView.SetContent(b.String())
	if following {
		m.logView.GotoBottom()
	}
}

// Lines used by everything above the event log
const headerLines = 16

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// flagStyle colours a flag the way it is shown at the track
func flagStyle(f livetiming.Flag) lipgloss.Style {
	switch f {
	case livetiming.FlagGreen:
		return valueStyle
	case livetiming.FlagYellow, livetiming.FlagSafetyCarStandby, livetiming.FlagSafetyCar:
		return infoStyle
	case livetiming.FlagRed:
		return errorStyle
	default:
		return mutedStyle
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("TRACKSIDE - LIVE TIMING"))
	s.WriteString("\n")
	mode := "Skipped only"
	if m.showAll {
		mode = "All packets"
	}
	s.WriteString(mutedStyle.Render(fmt.Sprintf("Source: %s | Mode: %s | 'r' reset, 'q' quit", m.sourceName, mode)))
	s.WriteString("\n\n")

	snap := m.stats.Snapshot()
	var errorPercent float64
	if attempts := snap.TotalPackets + snap.Errors(); attempts > 0 {
		errorPercent = float64(snap.Errors()) * 100.0 / float64(attempts)
	}

	var stats strings.Builder
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Packets:"), valueStyle.Render(fmt.Sprintf("%d", snap.TotalPackets)),
		labelStyle.Render("Car/System:"), valueStyle.Render(fmt.Sprintf("%d/%d", snap.CarPackets, snap.SystemPackets)),
		labelStyle.Render("Skipped:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", snap.Errors(), errorPercent)),
	))
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Replay/Live:"), valueStyle.Render(fmt.Sprintf("%d/%d", snap.ReplayEvents, snap.LiveEvents)),
		labelStyle.Render("Resets:"), valueStyle.Render(fmt.Sprintf("%d event, %d keyframe", snap.EventResets, snap.KeyframeResets)),
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f pkts/s", snap.PacketRate)),
	))
	if snap.MalformedHeaders > 0 || snap.UnknownTypes > 0 {
		stats.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("Malformed:"), errorStyle.Render(fmt.Sprintf("%d", snap.MalformedHeaders)),
			labelStyle.Render("Unknown type:"), errorStyle.Render(fmt.Sprintf("%d", snap.UnknownTypes)),
		))
	}
	s.WriteString(boxStyle.Render(strings.TrimRight(stats.String(), "\n")))
	s.WriteString("\n")

	var session strings.Builder
	if m.session.hasEvent {
		session.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
			labelStyle.Render("Event:"), valueStyle.Render(m.session.event.Kind.String()),
			labelStyle.Render("Phase:"), valueStyle.Render(m.session.phase.String()),
			labelStyle.Render("Flag:"), flagStyle(m.session.flag).Render(m.session.flag.String()),
			labelStyle.Render("Clock:"), valueStyle.Render(m.session.elapsed.String()),
		))
	} else {
		session.WriteString(infoStyle.Render("⏳ Waiting for event start...") + "\n")
	}
	if len(m.session.weather) > 0 {
		parts := []string{}
		for metric := livetiming.WeatherTrackTemp; metric <= livetiming.WeatherWindDirection; metric++ {
			if v, ok := m.session.weather[metric]; ok {
				parts = append(parts, fmt.Sprintf("%s %s", mutedStyle.Render(metric.String()+":"), v))
			}
		}
		session.WriteString(strings.Join(parts, "  ") + "\n")
	}
	if m.session.notice != "" {
		session.WriteString(labelStyle.Render("Notice: ") + m.session.notice + "\n")
	}
	if m.session.commentary != "" {
		session.WriteString(labelStyle.Render("Commentary: ") + m.session.commentary + "\n")
	}
	s.WriteString(boxStyle.Render(strings.TrimRight(session.String(), "\n")))
	s.WriteString("\n")

	title := "Recent Events:"
	if m.finished {
		title = "Recent Events (session ended):"
	}
	s.WriteString(labelStyle.Render(title))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 2).Render(m.logView.View()))

	return s.String()
}
