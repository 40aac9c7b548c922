// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
)

// ResetReason records why the cipher salt was reset
type ResetReason int

// Reset reasons
const (
	ResetEventStart ResetReason = iota
	ResetKeyframe
)

func (r ResetReason) String() string {
	if r == ResetKeyframe {
		return "keyframe"
	}
	return "event_start"
}

// Observer receives decoder events. Implementations must be cheap; they run
// on the decoding goroutine.
type Observer interface {
	PacketDecoded(p *Packet)
	DecodeFailed(err error)
	CipherReset(reason ResetReason)
}

// KeyframeArchiver receives the snapshot source referenced by a keyframe marker
type KeyframeArchiver func(number uint32, src Source) error

// Option configures a Decoder
type Option func(*Decoder)

// WithMaxRetries bounds the number of consecutive failed packet attempts a
// stream skips before giving up with ErrTooManyRetries. Zero means unbounded.
func WithMaxRetries(n int) Option {
	return func(d *Decoder) {
		if n >= 0 {
			d.maxRetries = n
		}
	}
}

// WithObserver installs a metrics hook
func WithObserver(o Observer) Option {
	return func(d *Decoder) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithLogger sets the decoder's diagnostic logger
func WithLogger(l *log.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithKeyframeArchive resolves the snapshot of every keyframe marker and hands
// it to fn. Snapshots are not replayed.
func WithKeyframeArchive(fn KeyframeArchiver) Option {
	return func(d *Decoder) {
		d.archive = fn
	}
}

// Decoder turns a Source into packets, tracking the cipher state across packets
type Decoder struct {
	cipher     *Cipher
	maxRetries int
	observer   Observer
	logger     *log.Logger
	archive    KeyframeArchiver
}

// NewDecoder creates a new stream decoder
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		cipher:   NewCipher(),
		observer: nopObserver{},
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Cipher returns the decoder's cipher
func (d *Decoder) Cipher() *Cipher {
	return d.cipher
}

// ReadPacket performs one read-packet step against src: header, kind,
// payload, decryption and control handling. Malformed headers and unknown
// kinds are returned as errors; the header bytes stay consumed.
func (d *Decoder) ReadPacket(src Source) (*Packet, error) {
	header, err := DecodeHeader(src)
	if err != nil {
		return nil, err
	}

	kind, err := Resolve(header.Car, header.Type)
	if err != nil {
		return nil, fmt.Errorf("header %s: %w", header, err)
	}

	raw, err := src.ReadBytes(kind.Rule().Length(header.Data))
	if err != nil {
		if errors.Is(err, ErrShortRead) {
			return nil, fmt.Errorf("%s payload truncated: %w", kind, ErrEndOfSource)
		}
		return nil, err
	}

	payload := raw
	if kind.Encrypted() {
		payload = d.cipher.Decrypt(raw)
	}

	packet := NewPacket(header, kind, payload)
	if err := d.handleControl(src, packet); err != nil {
		return nil, err
	}
	return packet, nil
}

// handleControl applies event-start and keyframe side effects to the cipher
func (d *Decoder) handleControl(src Source, p *Packet) error {
	switch p.Kind() {
	case KindEventStart:
		ev, err := p.EventStart()
		if err != nil {
			d.logger.Printf("event start without session id: %v", err)
			d.resetCipher(ResetEventStart)
			return nil
		}
		key, err := src.DecryptionKey(ev.Session)
		if err != nil {
			return fmt.Errorf("decryption key for session %d: %w", ev.Session, err)
		}
		if err := d.cipher.SetKey(key); err != nil {
			return err
		}
		d.logger.Printf("%s session %d started, key %08X", ev.Kind, ev.Session, d.cipher.Key())
		d.resetCipher(ResetEventStart)

	case KindKeyframe:
		d.resetCipher(ResetKeyframe)
		if d.archive == nil {
			return nil
		}
		number, err := p.KeyframeNumber()
		if err != nil {
			d.logger.Printf("keyframe marker: %v", err)
			return nil
		}
		snapshot, err := src.Keyframe(&number)
		if err != nil {
			d.logger.Printf("keyframe %d: %v", number, err)
			return nil
		}
		if err := d.archive(number, snapshot); err != nil {
			d.logger.Printf("archive keyframe %d: %v", number, err)
		}
	}
	return nil
}

func (d *Decoder) resetCipher(reason ResetReason) {
	d.cipher.Reset()
	d.observer.CipherReset(reason)
}

// Stream starts a forward-only decode of src. Restarting requires a fresh source.
func (d *Decoder) Stream(src Source) *Stream {
	return &Stream{decoder: d, src: src}
}

// Packets returns an iterator over the packets of src.
// Iteration stops after the first error.
func (d *Decoder) Packets(src Source) iter.Seq2[*Packet, error] {
	return func(yield func(*Packet, error) bool) {
		s := d.Stream(src)
		for {
			p, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(p, err) || err != nil {
				return
			}
		}
	}
}

// Stream is a lazy sequence of packets decoded from one source
type Stream struct {
	decoder  *Decoder
	src      Source
	failures int
	done     bool
}

// Next returns the next packet, or io.EOF once the source is exhausted.
// Malformed headers and unknown kinds are skipped; capability errors from the
// source end the stream and are returned.
func (s *Stream) Next() (*Packet, error) {
	if s.done {
		return nil, io.EOF
	}
	d := s.decoder
	for {
		p, err := d.ReadPacket(s.src)
		switch {
		case err == nil:
			s.failures = 0
			d.observer.PacketDecoded(p)
			return p, nil

		case errors.Is(err, ErrEndOfSource):
			s.done = true
			return nil, io.EOF

		case errors.Is(err, ErrMalformedHeader), errors.Is(err, ErrUnknownPacketType):
			s.failures++
			d.observer.DecodeFailed(err)
			d.logger.Printf("skipping packet: %v", err)
			if d.maxRetries > 0 && s.failures > d.maxRetries {
				s.done = true
				return nil, fmt.Errorf("%w: %d in a row, last: %v", ErrTooManyRetries, s.failures, err)
			}

		default:
			s.done = true
			return nil, err
		}
	}
}

// Failures returns the current count of consecutive failed attempts
func (s *Stream) Failures() int {
	return s.failures
}

type nopObserver struct{}

func (nopObserver) PacketDecoded(*Packet)   {}
func (nopObserver) DecodeFailed(error)      {}
func (nopObserver) CipherReset(ResetReason) {}
