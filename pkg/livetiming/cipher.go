// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package livetiming

import (
	"fmt"
	"strconv"
	"strings"
)

// Cipher is the rolling XOR/shift stream cipher protecting packet payloads.
// The salt advances once per processed byte; the key is fixed per session.
type Cipher struct {
	salt uint32
	key  uint32
}

// NewCipher creates a cipher with a reset salt and a zero key
func NewCipher() *Cipher {
	return &Cipher{salt: CipherSeed}
}

// Reset restores the salt to CipherSeed. The key is left untouched.
func (c *Cipher) Reset() {
	c.salt = CipherSeed
}

// SetKey parses a hexadecimal session key. The salt is left untouched.
func (c *Cipher) SetKey(hexKey string) error {
	s := strings.TrimSpace(hexKey)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	key, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("invalid session key %q: %w", hexKey, err)
	}
	c.key = uint32(key)
	return nil
}

// SetKeyValue replaces the key with an already parsed value
func (c *Cipher) SetKeyValue(key uint32) {
	c.key = key
}

// Key returns the current session key
func (c *Cipher) Key() uint32 {
	return c.key
}

// Salt returns the current salt
func (c *Cipher) Salt() uint32 {
	return c.salt
}

// Decrypt transforms data byte by byte, stepping the salt once per byte.
// Empty input returns an empty slice and leaves the salt unchanged.
func (c *Cipher) Decrypt(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		c.salt = c.next()
		out[i] = b ^ byte(c.salt)
	}
	return out
}

// Encrypt is Decrypt: XOR with the same keystream restores the input
func (c *Cipher) Encrypt(data []byte) []byte {
	return c.Decrypt(data)
}

func (c *Cipher) next() uint32 {
	s := c.salt >> 1
	if c.salt&1 != 0 {
		s ^= c.key
	}
	return s
}
