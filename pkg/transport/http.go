// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Thermoquad/trackside/pkg/livetiming"
)

// HTTPArchive fetches decryption keys and keyframes from the live-timing web server
type HTTPArchive struct {
	base   string
	auth   string
	client *http.Client
}

// NewHTTPArchive creates an archive rooted at base (e.g. DefaultHTTPBase).
// Uses WithHTTPClient and WithAuth.
func NewHTTPArchive(base string, opts ...Option) *HTTPArchive {
	s := apply(opts)
	return &HTTPArchive{
		base:   strings.TrimRight(base, "/"),
		auth:   s.auth,
		client: s.client,
	}
}

// KeyURL returns the key request URL for session
func (a *HTTPArchive) KeyURL(session int) string {
	return fmt.Sprintf("%s/reg/getkey/%d.asp?auth=%s", a.base, session, url.QueryEscape(a.auth))
}

// KeyframeURL returns the URL of a keyframe; nil selects the current one
func (a *HTTPArchive) KeyframeURL(number *uint32) string {
	if number == nil {
		return a.base + "/keyframe.bin"
	}
	return fmt.Sprintf("%s/keyframe_%05d.bin", a.base, *number)
}

// DecryptionKey implements Archive
func (a *HTTPArchive) DecryptionKey(session int) (string, error) {
	body, err := a.get(a.KeyURL(session))
	if err != nil {
		return "", fmt.Errorf("key for session %d: %w", session, err)
	}
	key := strings.TrimSpace(string(body))
	if key == "" {
		return "", fmt.Errorf("key for session %d: empty response: %w", session, livetiming.ErrNotSupported)
	}
	return key, nil
}

// Keyframe implements Archive
func (a *HTTPArchive) Keyframe(number *uint32) ([]byte, error) {
	body, err := a.get(a.KeyframeURL(number))
	if err != nil {
		return nil, fmt.Errorf("keyframe: %w", err)
	}
	return body, nil
}

func (a *HTTPArchive) get(target string) ([]byte, error) {
	resp, err := a.client.Get(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", livetiming.ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", target, livetiming.ErrNotSupported)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s: HTTP %d", livetiming.ErrTransportUnavailable, target, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", livetiming.ErrTransportUnavailable, target, err)
	}
	return body, nil
}
