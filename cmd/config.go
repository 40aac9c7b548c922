// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/trackside/pkg/transport"
)

type sourceConfig struct {
	Host          string `yaml:"host"`
	Replay        string `yaml:"replay"`
	URL           string `yaml:"url"`
	Username      string `yaml:"username"`
	NoSSLVerify   bool   `yaml:"noSSLVerify"`
	NoKeepAlive   bool   `yaml:"noKeepAlive"`
	Port          string `yaml:"port"`
	Baud          int    `yaml:"baud"`
	MaxRetries    int    `yaml:"maxRetries"`
	KeyframeStore string `yaml:"keyframeStore"`
}

type httpConfig struct {
	Base        string        `yaml:"base"`
	Timeout     time.Duration `yaml:"timeout"`
	ReadTimeout time.Duration `yaml:"readTimeout"`
}

type logConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type metricsConfig struct {
	Addr string `yaml:"addr"`
}

type config struct {
	Source  sourceConfig  `yaml:"source"`
	HTTP    httpConfig    `yaml:"http"`
	Logs    logConfig     `yaml:"logs"`
	Metrics metricsConfig `yaml:"metrics"`
}

func defaultConfig() config {
	var c config
	fillDefaults(&c)
	return c
}

func fillDefaults(c *config) {
	if c.Source.Baud <= 0 {
		c.Source.Baud = 115200
	}
	if c.Source.MaxRetries < 0 {
		c.Source.MaxRetries = 0
	}
	if c.HTTP.Base == "" {
		c.HTTP.Base = transport.DefaultHTTPBase
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 15 * time.Second
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = transport.DefaultReadTimeout
	}
	if c.Logs.MaxSizeMB <= 0 {
		c.Logs.MaxSizeMB = 25
	}
	if c.Logs.MaxAgeDays <= 0 {
		c.Logs.MaxAgeDays = 7
	}
	if c.Logs.MaxBackups <= 0 {
		c.Logs.MaxBackups = 5
	}
}

func loadConfig(path string) (config, error) {
	var c config
	f, err := os.Open(path)
	if err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Relative paths are resolved against the config file
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	c.Source.Replay = resolvePath(c.Source.Replay)
	c.Source.KeyframeStore = resolvePath(c.Source.KeyframeStore)
	c.Logs.File = resolvePath(c.Logs.File)

	fillDefaults(&c)
	return c, nil
}

// applyFlags lets explicitly set flags override the configuration file
func applyFlags(cmd *cobra.Command, c *config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		c.Source.Host = liveHost
	}
	if flags.Changed("http-base") {
		c.HTTP.Base = httpBase
	}
	if flags.Changed("replay") {
		c.Source.Replay = replayDir
	}
	if flags.Changed("url") {
		c.Source.URL = wsURL
	}
	if flags.Changed("username") {
		c.Source.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		c.Source.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("no-keep-alive") {
		c.Source.NoKeepAlive = noKeepAlive
	}
	if flags.Changed("port") {
		c.Source.Port = portName
	}
	if flags.Changed("baud") {
		c.Source.Baud = baudRate
	}
	if flags.Changed("max-retries") {
		c.Source.MaxRetries = maxRetries
	}
	if flags.Changed("log-file") {
		c.Logs.File = logFile
	}
	fillDefaults(c)
}
