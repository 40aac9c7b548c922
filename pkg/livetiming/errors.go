// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import "errors"

// Decode errors, recovered by the stream decoder
var (
	ErrMalformedHeader   = errors.New("malformed header")
	ErrUnknownPacketType = errors.New("unknown packet type")
)

// Source errors
var (
	ErrEndOfSource          = errors.New("end of source")
	ErrShortRead            = errors.New("short read")
	ErrNotSupported         = errors.New("not supported by source")
	ErrTransportUnavailable = errors.New("transport unavailable")
)

// ErrTooManyRetries is returned when the configured retry ceiling is exceeded
var ErrTooManyRetries = errors.New("too many consecutive decode failures")

// Payload accessor errors
var (
	ErrWrongKind       = errors.New("wrong packet kind")
	ErrPayloadTooShort = errors.New("payload too short")
	ErrInvalidPayload  = errors.New("invalid payload")
)
