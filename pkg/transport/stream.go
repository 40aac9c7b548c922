// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides live-timing byte sources backed by TCP,
// recorded directories, websocket relays and serial relays.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Thermoquad/trackside/pkg/livetiming"
)

// Archive supplies the session capabilities of a source: decryption keys and
// keyframe snapshots. A nil keyframe number selects the most recent keyframe.
type Archive interface {
	DecryptionKey(session int) (string, error)
	Keyframe(number *uint32) ([]byte, error)
}

// Stream adapts a byte stream and an optional Archive to livetiming.Source
type Stream struct {
	r       *bufio.Reader
	closer  io.Closer
	archive Archive
	name    string

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewStream wraps r. If r is an io.Closer, Close closes it.
func NewStream(name string, r io.Reader, archive Archive) *Stream {
	s := &Stream{r: bufio.NewReader(r), archive: archive, name: name, done: make(chan struct{})}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Watch closes the stream once ctx ends, unblocking a pending read. Reads
// after that report livetiming.ErrEndOfSource.
func (s *Stream) Watch(ctx context.Context) *Stream {
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s
}

func (s *Stream) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Name describes where the stream reads from
func (s *Stream) Name() string {
	return s.name
}

// ReadBytes implements livetiming.Source
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if s.closed() {
		return nil, livetiming.ErrEndOfSource
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(s.r, buf)
	switch {
	case err == nil:
		return buf, nil
	case s.closed():
		return nil, livetiming.ErrEndOfSource
	case errors.Is(err, io.EOF):
		return nil, livetiming.ErrEndOfSource
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: wanted %d bytes, got %d", livetiming.ErrShortRead, n, read)
	case errors.Is(err, ErrConnectionClosed):
		if read > 0 {
			return nil, fmt.Errorf("%w: connection closed after %d of %d bytes", livetiming.ErrShortRead, read, n)
		}
		return nil, livetiming.ErrEndOfSource
	default:
		return nil, fmt.Errorf("%w: %s: %v", livetiming.ErrTransportUnavailable, s.name, err)
	}
}

// DecryptionKey implements livetiming.Source
func (s *Stream) DecryptionKey(session int) (string, error) {
	if s.archive == nil {
		return "", fmt.Errorf("%s has no key service: %w", s.name, livetiming.ErrNotSupported)
	}
	return s.archive.DecryptionKey(session)
}

// Keyframe implements livetiming.Source. The snapshot delegates key lookups
// back to this stream.
func (s *Stream) Keyframe(number *uint32) (livetiming.Source, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("%s has no keyframe service: %w", s.name, livetiming.ErrNotSupported)
	}
	data, err := s.archive.Keyframe(number)
	if err != nil {
		return nil, err
	}
	return livetiming.NewMemorySource(data).WithParent(s), nil
}

// Close releases the underlying connection. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}
