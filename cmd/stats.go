// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/trackside/pkg/livetiming"
	"github.com/Thermoquad/trackside/pkg/metrics"
	"github.com/Thermoquad/trackside/pkg/transport"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
	metricsAddr   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Track decode statistics and skipped packets",
	Long: `Decode the stream and track packet counts, skipped packets and cipher resets.

This command reports:
  - Malformed headers and unknown packet types (skipped and counted)
  - Packet counts per family and per session phase
  - Cipher resets from event starts and keyframes
  - Packet and error rates

By default, only skipped packets are displayed. Use --show-all to display
every decoded packet too. Statistics summaries are printed at a configurable
interval, or shown live in the terminal UI.

With --metrics-addr, the same counters are served for Prometheus at /metrics.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all packets (not just skipped ones)")
	statsCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	statsCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
	statsCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

func runStats(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stream, err := OpenSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer stream.Close()

	stats := livetiming.NewStatistics()
	observers := []livetiming.Observer{stats}

	if cfg.Metrics.Addr != "" {
		collector := metrics.New(metrics.WithConstLabels(map[string]string{"source": stream.Name()}))
		collector.Registry().MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		observers = append(observers, collector)
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: collector.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
		logger.Printf("serving metrics on %s/metrics", cfg.Metrics.Addr)
	}

	if useTUI && isTerminal(os.Stdout) {
		return runTUIMode(stream, stats, observers)
	}
	return runTextMode(ctx, stream, stats, observers)
}

// phaseRecorder is implemented by observers that also count session phases
type phaseRecorder interface {
	RecordEvent(ev livetiming.Event)
}

func recordEvent(observers []livetiming.Observer, ev livetiming.Event) {
	for _, o := range observers {
		if r, ok := o.(phaseRecorder); ok {
			r.RecordEvent(ev)
		}
	}
}

// failurePrinter prints skipped packets as they happen
type failurePrinter struct {
	colour bool
}

func (failurePrinter) PacketDecoded(*livetiming.Packet)   {}
func (failurePrinter) CipherReset(livetiming.ResetReason) {}

func (f failurePrinter) DecodeFailed(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	if f.colour {
		fmt.Printf("[%s] \033[1;31mSKIPPED:\033[0m %v\n", timestamp, err)
		return
	}
	fmt.Printf("[%s] SKIPPED: %v\n", timestamp, err)
}

// runTextMode prints skipped packets and periodic statistics summaries
func runTextMode(ctx context.Context, stream *transport.Stream, stats *livetiming.Statistics, observers []livetiming.Observer) error {
	fmt.Printf("Trackside - Statistics Mode\n")
	fmt.Printf("Source: %s\n", stream.Name())
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All packets\n")
	} else {
		fmt.Printf("Mode: Skipped packets only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	observers = append(observers, failurePrinter{colour: isTerminal(os.Stdout)})
	session := livetiming.NewSession(stream, decoderOptions(cfg, observers...)...)

	type result struct {
		ev  livetiming.Event
		err error
	}
	events := make(chan result, 16)
	go func() {
		defer close(events)
		for ev, err := range session.Events() {
			select {
			case events <- result{ev, err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case r, ok := <-events:
			if !ok {
				fmt.Println()
				fmt.Print(stats.String())
				return nil
			}
			if r.err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return r.err
			}
			recordEvent(observers, r.ev)
			if showAll {
				fmt.Print(livetiming.FormatEvent(r.ev))
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case <-ctx.Done():
			return nil
		}
	}
}

// tuiObserver forwards decoder events to the terminal UI
type tuiObserver struct {
	program *tea.Program
}

func (t tuiObserver) PacketDecoded(*livetiming.Packet) {}

func (t tuiObserver) DecodeFailed(err error) {
	t.program.Send(failureMsg{err: err})
}

func (t tuiObserver) CipherReset(reason livetiming.ResetReason) {
	t.program.Send(resetMsg{reason: reason})
}

// runTUIMode runs the statistics monitor in the terminal UI
func runTUIMode(stream *transport.Stream, stats *livetiming.Statistics, observers []livetiming.Observer) error {
	m := initialModel(stream.Name(), statsInterval, showAll, stats)
	p := tea.NewProgram(m, tea.WithAltScreen())

	observers = append(observers, tuiObserver{program: p})
	session := livetiming.NewSession(stream, decoderOptions(cfg, observers...)...)

	go func() {
		for ev, err := range session.Events() {
			if err != nil {
				p.Send(sessionEndMsg{err: err})
				return
			}
			recordEvent(observers, ev)
			p.Send(eventMsg{event: ev})
		}
		p.Send(sessionEndMsg{})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
