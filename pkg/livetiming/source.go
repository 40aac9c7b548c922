// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"fmt"
	"sort"
)

// Source supplies raw stream bytes plus the session capabilities the decoder needs.
//
// ReadBytes returns exactly n bytes. It returns ErrEndOfSource when no bytes
// are left and ErrShortRead when fewer than n bytes were left; short reads
// consume what remained. DecryptionKey and Keyframe return ErrNotSupported
// (wrapped) when the source cannot provide them.
type Source interface {
	ReadBytes(n int) ([]byte, error)
	DecryptionKey(session int) (string, error)
	Keyframe(number *uint32) (Source, error)
}

// MemorySource is a Source over an in-memory byte slice
type MemorySource struct {
	data      []byte
	offset    int
	keys      map[int]string
	keyframes map[uint32][]byte
	parent    Source
}

// NewMemorySource creates a source reading data from the start
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{
		data:      data,
		keys:      make(map[int]string),
		keyframes: make(map[uint32][]byte),
	}
}

// WithKey registers the hex decryption key for a session
func (m *MemorySource) WithKey(session int, hexKey string) *MemorySource {
	m.keys[session] = hexKey
	return m
}

// WithKeyframe registers the raw bytes of a keyframe.
// The highest registered number is the most recent keyframe.
func (m *MemorySource) WithKeyframe(number uint32, data []byte) *MemorySource {
	m.keyframes[number] = data
	return m
}

// WithParent delegates unknown keys and keyframes to parent
func (m *MemorySource) WithParent(parent Source) *MemorySource {
	m.parent = parent
	return m
}

// Remaining returns the number of unread bytes
func (m *MemorySource) Remaining() int {
	return len(m.data) - m.offset
}

// ReadBytes implements Source
func (m *MemorySource) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	if n == 0 {
		return []byte{}, nil
	}
	left := m.Remaining()
	if left == 0 {
		return nil, ErrEndOfSource
	}
	if left < n {
		m.offset = len(m.data)
		return nil, fmt.Errorf("%w: wanted %d bytes, %d left", ErrShortRead, n, left)
	}
	out := make([]byte, n)
	copy(out, m.data[m.offset:])
	m.offset += n
	return out, nil
}

// DecryptionKey implements Source
func (m *MemorySource) DecryptionKey(session int) (string, error) {
	if key, ok := m.keys[session]; ok {
		return key, nil
	}
	if m.parent != nil {
		return m.parent.DecryptionKey(session)
	}
	return "", fmt.Errorf("key for session %d: %w", session, ErrNotSupported)
}

// Keyframe implements Source. A nil number selects the most recent keyframe.
func (m *MemorySource) Keyframe(number *uint32) (Source, error) {
	if number == nil {
		if len(m.keyframes) == 0 {
			if m.parent != nil {
				return m.parent.Keyframe(nil)
			}
			return nil, fmt.Errorf("latest keyframe: %w", ErrNotSupported)
		}
		latest := m.KeyframeNumbers()
		n := latest[len(latest)-1]
		number = &n
	}
	data, ok := m.keyframes[*number]
	if !ok {
		if m.parent != nil {
			return m.parent.Keyframe(number)
		}
		return nil, fmt.Errorf("keyframe %d: %w", *number, ErrNotSupported)
	}
	return NewMemorySource(data).WithParent(m), nil
}

// KeyframeNumbers returns the registered keyframe numbers in ascending order
func (m *MemorySource) KeyframeNumbers() []uint32 {
	numbers := make([]uint32, 0, len(m.keyframes))
	for n := range m.keyframes {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers
}
