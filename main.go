// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Trackside - Live-timing stream decoder
//
// A CLI tool for decoding the live-timing packet stream
// in human-readable format.

package main

import (
	"os"

	"github.com/Thermoquad/trackside/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
