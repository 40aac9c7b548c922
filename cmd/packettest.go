// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/trackside/pkg/livetiming"
)

// packet_test exit codes
const (
	exitPacketReceived = 0
	exitTimeout        = 1
	exitSourceError    = 2
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test a source by waiting for a valid packet",
	Long: `Wait for a valid packet from the source until timeout.

This command opens the configured source and decodes until the first packet
with a known kind and a complete payload arrives. Bad headers and unknown
packet types are skipped.

Exit codes:
  0 - Packet received before timeout
  1 - Timeout reached without receiving a valid packet
  2 - Source error

Useful for testing connectivity to the live server or a relay.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a packet")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	timeout := time.Duration(packetTestTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stream, err := OpenSource(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Source error: %v\n", err)
		os.Exit(exitSourceError)
	}
	defer stream.Close()

	fmt.Printf("Trackside - Packet Test\n")
	fmt.Printf("Source: %s\n", stream.Name())
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid packet...\n\n")

	code := waitForPacket(ctx, stream, os.Stdout, decoderOptions(cfg)...)
	os.Exit(code)
	return nil
}

// waitForPacket reads the primary stream until the first packet, a source
// error or ctx expiry, and returns the exit code. Keyframes are not replayed.
func waitForPacket(ctx context.Context, src livetiming.Source, out io.Writer, opts ...livetiming.Option) int {
	packetChan := make(chan *livetiming.Packet, 1)
	errChan := make(chan error, 1)
	stats := livetiming.NewStatistics()
	opts = append(opts, livetiming.WithObserver(stats))
	stream := livetiming.NewDecoder(opts...).Stream(src)

	go func() {
		p, err := stream.Next()
		if err != nil {
			if err == io.EOF {
				err = fmt.Errorf("source ended before a valid packet")
			}
			errChan <- err
			return
		}
		packetChan <- p
	}()

	select {
	case packet := <-packetChan:
		if skipped := stats.Snapshot().Errors(); skipped > 0 {
			fmt.Fprintf(out, "(skipped %d bad packets before sync)\n", skipped)
		}
		fmt.Fprintf(out, "SUCCESS: Received valid packet\n")
		fmt.Fprintf(out, "  Kind: %s (type %d)\n", packet.Kind(), packet.Type())
		if packet.IsCar() {
			fmt.Fprintf(out, "  Car: %d\n", packet.Car())
		}
		fmt.Fprintf(out, "  Length: %d bytes\n", packet.Length())
		return exitPacketReceived

	case err := <-errChan:
		if ctx.Err() != nil {
			return timedOut(out)
		}
		fmt.Fprintf(out, "Read error: %v\n", err)
		if failures := stream.Failures(); failures > 0 {
			fmt.Fprintf(out, "  %d consecutive bad packets\n", failures)
		}
		return exitSourceError

	case <-ctx.Done():
		return timedOut(out)
	}
}

func timedOut(out io.Writer) int {
	fmt.Fprintf(out, "TIMEOUT: No valid packet received within %d seconds\n", packetTestTimeout)
	return exitTimeout
}
