// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/trackside/pkg/transport"
)

var (
	discoveryHTTP bool
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "List available sources",
	Long: `List the sources trackside can read from.

Reports:
  - Serial ports present on this machine (for --port)
  - Numbered keyframes in the --replay directory, if one is set
  - Whether the current keyframe can be fetched from --http-base (with --http)

Exit codes:
  0 - At least one source found
  1 - No sources found`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().BoolVar(&discoveryHTTP, "http", false, "Probe the keyframe server")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	fmt.Printf("Trackside - Source Discovery\n\n")
	if discoverSources(os.Stdout, cfg, discoveryHTTP) == 0 {
		os.Exit(1)
	}
	return nil
}

// discoverSources prints what it finds and returns the number of usable sources
func discoverSources(out io.Writer, c config, probeHTTP bool) int {
	found := 0

	ports, err := transport.SerialPorts()
	switch {
	case err != nil:
		fmt.Fprintf(out, "Serial ports: %v\n", err)
	case len(ports) == 0:
		fmt.Fprintf(out, "Serial ports: none\n")
	default:
		fmt.Fprintf(out, "Serial ports:\n")
		for _, p := range ports {
			fmt.Fprintf(out, "  %s\n", p)
		}
		found += len(ports)
	}

	if c.Source.Replay != "" {
		numbers, err := transport.NewDirArchive(c.Source.Replay).KeyframeNumbers()
		if err != nil {
			fmt.Fprintf(out, "Replay %s: %v\n", c.Source.Replay, err)
		} else {
			fmt.Fprintf(out, "Replay %s: %d numbered keyframes", c.Source.Replay, len(numbers))
			if len(numbers) > 0 {
				fmt.Fprintf(out, " (%05d..%05d)", numbers[0], numbers[len(numbers)-1])
			}
			fmt.Fprintln(out)
			if _, err := os.Stat(filepath.Join(c.Source.Replay, transport.LiveFile)); err == nil {
				found++
			}
		}
	}

	if probeHTTP {
		archive := httpArchive(c)
		data, err := archive.Keyframe(nil)
		if err != nil {
			fmt.Fprintf(out, "Keyframe server %s: %v\n", archive.KeyframeURL(nil), err)
		} else {
			fmt.Fprintf(out, "Keyframe server %s: %d bytes\n", archive.KeyframeURL(nil), len(data))
			found++
		}
	}

	return found
}
