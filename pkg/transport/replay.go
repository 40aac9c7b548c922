// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Thermoquad/trackside/pkg/livetiming"
)

// Recorded directory layout
const (
	LiveFile     = "live.bin"
	KeyframeFile = "keyframe.bin"
)

var keyframePattern = regexp.MustCompile(`^keyframe_(\d{5})\.bin$`)

// DirArchive serves keys and keyframes from a recorded directory:
// key_<session>.txt holds a hex key, keyframe_<nnnnn>.bin a numbered snapshot
// and keyframe.bin the most recent one.
type DirArchive struct {
	dir string
}

// NewDirArchive creates an archive over dir
func NewDirArchive(dir string) *DirArchive {
	return &DirArchive{dir: dir}
}

// DecryptionKey implements Archive
func (a *DirArchive) DecryptionKey(session int) (string, error) {
	data, err := a.read(fmt.Sprintf("key_%d.txt", session))
	if err != nil {
		return "", fmt.Errorf("key for session %d: %w", session, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Keyframe implements Archive. Without keyframe.bin, nil selects the highest
// numbered snapshot.
func (a *DirArchive) Keyframe(number *uint32) ([]byte, error) {
	if number != nil {
		return a.read(fmt.Sprintf("keyframe_%05d.bin", *number))
	}
	data, err := a.read(KeyframeFile)
	if err == nil || !errors.Is(err, livetiming.ErrNotSupported) {
		return data, err
	}
	numbers, lerr := a.KeyframeNumbers()
	if lerr != nil || len(numbers) == 0 {
		return nil, err
	}
	latest := numbers[len(numbers)-1]
	return a.Keyframe(&latest)
}

// KeyframeNumbers lists the numbered snapshots in ascending order
func (a *DirArchive) KeyframeNumbers() ([]uint32, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, err
	}
	var numbers []uint32
	for _, e := range entries {
		m := keyframePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			continue
		}
		numbers = append(numbers, uint32(n))
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers, nil
}

// Dir returns the archive directory
func (a *DirArchive) Dir() string {
	return a.dir
}

// StoreKeyframe writes a numbered snapshot into the directory, creating it if needed
func (a *DirArchive) StoreKeyframe(number uint32, data []byte) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(a.dir, fmt.Sprintf("keyframe_%05d.bin", number))
	return os.WriteFile(name, data, 0o644)
}

// StoreKey writes the hex key of a session into the directory
func (a *DirArchive) StoreKey(session int, hexKey string) error {
	name := filepath.Join(a.dir, fmt.Sprintf("key_%d.txt", session))
	return os.WriteFile(name, []byte(hexKey+"\n"), 0o644)
}

func (a *DirArchive) read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(a.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, livetiming.ErrNotSupported)
	}
	return data, err
}

// OpenReplay opens the live.bin of a recorded directory
func OpenReplay(dir string) (*Stream, error) {
	f, err := os.Open(filepath.Join(dir, LiveFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open replay %s: %w", dir, err)
	}
	return NewStream("replay "+dir, f, NewDirArchive(dir)), nil
}
