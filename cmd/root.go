// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Live server flags
	liveHost    string
	httpBase    string
	noKeepAlive bool

	// Recorded directory flag
	replayDir string

	// WebSocket relay flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Serial relay flags
	portName string
	baudRate int

	// Decoder and ambient flags
	maxRetries int
	logFile    string
	configPath string

	cfg    = defaultConfig()
	logger = log.New(os.Stderr, "[trackside] ", log.LstdFlags)
)

var rootCmd = &cobra.Command{
	Use:   "trackside",
	Short: "Live-timing stream decoder",
	Long: `Trackside - A CLI tool for decoding the live-timing data stream.

Reads the encrypted packet stream from the live server, a recorded directory,
a websocket relay or a serial relay. Each session first replays the most
recent keyframe, then follows the live stream.

Source modes:
  Live:      --host live-timing.formula1.com:4321 [--http-base URL]
  Replay:    --replay ./recordings/2025-monaco
  WebSocket: --url ws://host/path [--username user]
  Serial:    --port /dev/ttyUSB0 [--baud 115200]

Decryption keys for the live server are requested with the session cookie in
the TRACKSIDE_AUTH environment variable. WebSocket passwords are read from
TRACKSIDE_PASSWORD, or prompted interactively if not set.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&liveHost, "host", "", "Live server address (host:port)")
	flags.StringVar(&httpBase, "http-base", "", "Base URL for keys and keyframes")
	flags.BoolVar(&noKeepAlive, "no-keep-alive", false, "Do not send the keep-alive byte when the live server is idle")

	flags.StringVarP(&replayDir, "replay", "r", "", "Recorded directory to replay")

	flags.StringVarP(&wsURL, "url", "u", "", "WebSocket relay URL (ws:// or wss://)")
	flags.StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	flags.BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	flags.StringVarP(&portName, "port", "p", "", "Serial relay device")
	flags.IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	flags.IntVar(&maxRetries, "max-retries", 0, "Consecutive bad packets before giving up (0 = never)")
	flags.StringVar(&logFile, "log-file", "", "Write diagnostics to a rotating log file")
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
}

// setup loads the configuration file, applies flag overrides and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		loaded, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	applyFlags(cmd, &cfg)

	l, err := newLogger(cfg.Logs)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
