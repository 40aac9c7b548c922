// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the diagnostic logger. Without a log file it writes to stderr.
func newLogger(c logConfig) (*log.Logger, error) {
	if c.File == "" {
		return log.New(os.Stderr, "[trackside] ", log.LstdFlags), nil
	}
	if err := os.MkdirAll(filepath.Dir(c.File), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeMB,
		MaxAge:     c.MaxAgeDays,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}
	return log.New(rotator, "[trackside] ", log.LstdFlags|log.Lmicroseconds), nil
}
