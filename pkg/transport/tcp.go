// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Thermoquad/trackside/pkg/livetiming"
)

// keepAliveConn retries timed-out reads, writing the keep-alive byte each time
type keepAliveConn struct {
	conn      net.Conn
	ctx       context.Context
	timeout   time.Duration
	keepAlive bool
}

func (k *keepAliveConn) Read(p []byte) (int, error) {
	for {
		if err := k.ctx.Err(); err != nil {
			return 0, err
		}
		if k.timeout > 0 {
			_ = k.conn.SetReadDeadline(time.Now().Add(k.timeout))
		}
		n, err := k.conn.Read(p)
		if err == nil || n > 0 {
			return n, err
		}
		var nerr net.Error
		if !errors.As(err, &nerr) || !nerr.Timeout() {
			return 0, err
		}
		if k.keepAlive {
			if _, err := k.conn.Write([]byte{livetiming.KeepAliveByte}); err != nil {
				return 0, err
			}
		}
	}
}

func (k *keepAliveConn) Close() error {
	return k.conn.Close()
}

// DialTCP connects to a live-timing server. Keys and keyframes come from the
// archive set with WithArchive; without one, capability requests fail with
// livetiming.ErrNotSupported.
func DialTCP(ctx context.Context, addr string, opts ...Option) (*Stream, error) {
	s := apply(opts)
	if addr == "" {
		addr = DefaultLiveAddr
	}

	dialer := net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", livetiming.ErrTransportUnavailable, addr, err)
	}
	return NewTCPStream(ctx, conn, opts...), nil
}

// NewTCPStream wraps an established connection
func NewTCPStream(ctx context.Context, conn net.Conn, opts ...Option) *Stream {
	s := apply(opts)
	r := &keepAliveConn{
		conn:      conn,
		ctx:       ctx,
		timeout:   s.readTimeout,
		keepAlive: s.keepAlive,
	}
	return NewStream("tcp "+conn.RemoteAddr().String(), r, s.archive).Watch(ctx)
}
