// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"net/http"
	"time"
)

// Default connection settings
const (
	DefaultLiveAddr    = "live-timing.formula1.com:4321"
	DefaultHTTPBase    = "http://live-timing.formula1.com"
	DefaultReadTimeout = 500 * time.Millisecond
	DefaultDialTimeout = 10 * time.Second
)

type settings struct {
	readTimeout time.Duration
	dialTimeout time.Duration
	keepAlive   bool
	client      *http.Client
	auth        string
	archive     Archive
}

func defaultSettings() settings {
	return settings{
		readTimeout: DefaultReadTimeout,
		dialTimeout: DefaultDialTimeout,
		keepAlive:   true,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Option configures a transport
type Option func(*settings)

// WithReadTimeout sets how long a read may block before the keep-alive byte is sent
func WithReadTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// WithDialTimeout bounds connection setup
func WithDialTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.dialTimeout = d
		}
	}
}

// WithKeepAlive toggles the keep-alive byte on read timeouts
func WithKeepAlive(enabled bool) Option {
	return func(s *settings) {
		s.keepAlive = enabled
	}
}

// WithHTTPClient sets the client used for key and keyframe requests
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.client = c
		}
	}
}

// WithAuth sets the session cookie sent with key requests
func WithAuth(cookie string) Option {
	return func(s *settings) {
		s.auth = cookie
	}
}

// WithArchive attaches the provider of keys and keyframes
func WithArchive(a Archive) Option {
	return func(s *settings) {
		s.archive = a
	}
}

func apply(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
