// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/Thermoquad/trackside/pkg/livetiming"
)

// ErrConnectionClosed is returned when reading from a closed relay connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConfig describes a relay connection
type WebSocketConfig struct {
	URL           string
	Username      string
	Password      string
	SkipSSLVerify bool
}

// wsReader exposes the binary frames of a relay as a byte stream
type wsReader struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *wsReader) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, ErrConnectionClosed
			}
			return 0, err
		}

		// Text frames carry relay status, not stream bytes
		if messageType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		w.buf = data
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *wsReader) Close() error {
	return w.conn.Close()
}

// DialWebSocket connects to a relay that forwards the raw stream in binary
// frames. The connection is closed when ctx ends.
func DialWebSocket(ctx context.Context, cfg WebSocketConfig, opts ...Option) (*Stream, error) {
	s := apply(opts)

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: s.dialTimeout}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.SkipSSLVerify}
	}

	headers := http.Header{}
	if cfg.Username != "" && cfg.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(dialCtx, cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: websocket HTTP %d: %v", livetiming.ErrTransportUnavailable, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: websocket: %v", livetiming.ErrTransportUnavailable, err)
	}

	return NewStream("websocket "+cfg.URL, &wsReader{conn: conn}, s.archive).Watch(ctx), nil
}
