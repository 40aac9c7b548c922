// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Thermoquad/trackside/pkg/livetiming"
)

var (
	dumpFormat  string
	dumpArchive string
	dumpSummary bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Display every decoded packet",
	Long: `Decode the stream and print every packet as it arrives.

The session replays the most recent keyframe first, then follows the live
stream. Each line is tagged with the phase it was read in.

Output formats:
  text   - human-readable packet log (default)
  cbor   - CBOR record sequence on stdout, one record per packet
  pretty - structured records, coloured when stdout is a terminal

With --archive, every keyframe referenced by the stream is saved to the given
directory so the session can later be replayed with --replay.`,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "text", "Output format (text, cbor, pretty)")
	dumpCmd.Flags().StringVar(&dumpArchive, "archive", "", "Directory to save referenced keyframes into")
	dumpCmd.Flags().BoolVar(&dumpSummary, "summary", false, "Print statistics to stderr at the end of the session")
}

// eventWriter writes one event in the selected format
type eventWriter func(ev livetiming.Event) error

func newEventWriter(w io.Writer, format string) (eventWriter, error) {
	switch format {
	case "text":
		return func(ev livetiming.Event) error {
			_, err := fmt.Fprint(w, livetiming.FormatEvent(ev))
			return err
		}, nil

	case "cbor":
		return func(ev livetiming.Event) error {
			data, err := livetiming.MarshalRecord(ev)
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		}, nil

	case "pretty":
		printer := pp.New()
		printer.SetOutput(w)
		printer.SetColoringEnabled(isTerminal(w))
		return func(ev livetiming.Event) error {
			_, err := printer.Println(livetiming.NewRecord(ev))
			return err
		}, nil

	default:
		return nil, fmt.Errorf("unknown format %q (use text, cbor or pretty)", format)
	}
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runDump(cmd *cobra.Command, args []string) error {
	write, err := newEventWriter(os.Stdout, dumpFormat)
	if err != nil {
		return err
	}
	if dumpArchive != "" {
		cfg.Source.KeyframeStore = dumpArchive
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stream, err := OpenSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer stream.Close()

	if dumpFormat == "text" {
		fmt.Printf("Trackside - Packet Dump\n")
		fmt.Printf("Source: %s\n", stream.Name())
		fmt.Printf("Press Ctrl+C to exit\n\n")
	}

	stats := livetiming.NewStatistics()
	session := livetiming.NewSession(stream, decoderOptions(cfg, stats)...)
	for ev, err := range session.Events() {
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		stats.RecordEvent(ev)
		if err := write(ev); err != nil {
			return err
		}
	}

	logger.Printf("session finished: %d packets, %d skipped", stats.Snapshot().TotalPackets, stats.Snapshot().Errors())
	if dumpSummary {
		fmt.Fprint(os.Stderr, stats.String())
	}
	return nil
}
