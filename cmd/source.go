// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Thermoquad/trackside/pkg/livetiming"
	"github.com/Thermoquad/trackside/pkg/metrics"
	"github.com/Thermoquad/trackside/pkg/transport"
)

// GetPassword retrieves the relay password from the environment or prompts the user
func GetPassword() (string, error) {
	if pw := os.Getenv("TRACKSIDE_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// httpArchive builds the key and keyframe service for network sources
func httpArchive(c config) *transport.HTTPArchive {
	return transport.NewHTTPArchive(c.HTTP.Base,
		transport.WithAuth(os.Getenv("TRACKSIDE_AUTH")),
		transport.WithHTTPClient(&http.Client{Timeout: c.HTTP.Timeout}),
	)
}

// OpenSource opens the configured source. Exactly one source must be
// configured. The source is closed when ctx ends.
func OpenSource(ctx context.Context, c config) (*transport.Stream, error) {
	configured := 0
	for _, s := range []string{c.Source.Host, c.Source.Replay, c.Source.URL, c.Source.Port} {
		if s != "" {
			configured++
		}
	}
	if configured == 0 {
		return nil, fmt.Errorf("one of --host, --replay, --url or --port must be specified")
	}
	if configured > 1 {
		return nil, fmt.Errorf("only one of --host, --replay, --url or --port may be specified")
	}

	switch {
	case c.Source.Replay != "":
		stream, err := transport.OpenReplay(c.Source.Replay)
		if err != nil {
			return nil, err
		}
		return stream.Watch(ctx), nil

	case c.Source.URL != "":
		password := ""
		if c.Source.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, err
			}
		}
		return transport.DialWebSocket(ctx, transport.WebSocketConfig{
			URL:           c.Source.URL,
			Username:      c.Source.Username,
			Password:      password,
			SkipSSLVerify: c.Source.NoSSLVerify,
		}, transport.WithArchive(httpArchive(c)))

	case c.Source.Port != "":
		return transport.OpenSerial(ctx, c.Source.Port, c.Source.Baud, transport.WithArchive(httpArchive(c)))

	default:
		return transport.DialTCP(ctx, c.Source.Host,
			transport.WithReadTimeout(c.HTTP.ReadTimeout),
			transport.WithKeepAlive(!c.Source.NoKeepAlive),
			transport.WithArchive(httpArchive(c)),
		)
	}
}

// decoderOptions returns the decoder options shared by every command
func decoderOptions(c config, observers ...livetiming.Observer) []livetiming.Option {
	opts := []livetiming.Option{
		livetiming.WithMaxRetries(c.Source.MaxRetries),
		livetiming.WithLogger(logger),
		livetiming.WithObserver(metrics.Multi(observers)),
	}
	if c.Source.KeyframeStore != "" {
		store := transport.NewDirArchive(c.Source.KeyframeStore)
		opts = append(opts, livetiming.WithKeyframeArchive(archiveKeyframe(store)))
	}
	return opts
}

// archiveKeyframe copies each referenced keyframe snapshot into store
func archiveKeyframe(store *transport.DirArchive) livetiming.KeyframeArchiver {
	return func(number uint32, src livetiming.Source) error {
		snapshot, ok := src.(*livetiming.MemorySource)
		if !ok {
			return fmt.Errorf("keyframe %d: unexpected source %T", number, src)
		}
		data, err := snapshot.ReadBytes(snapshot.Remaining())
		if err != nil {
			return err
		}
		logger.Printf("archiving keyframe %d (%d bytes)", number, len(data))
		return store.StoreKeyframe(number, data)
	}
}
