// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package instructions finds and loads the user's custom instructions
// file, which is appended to the agent's system instructions.
package instructions

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileName is the custom instructions file looked for by Find.
const FileName = ".desktop-assist.md"

// MaxSize is the largest instructions file Load accepts, in bytes.
const MaxSize = 10 * 1024

// ErrTooLarge is returned (wrapped) by Load for files over MaxSize.
var ErrTooLarge = errors.New("instructions file is too large")

// Find looks for FileName in start and each parent directory, stopping
// after home (inclusive) or at the filesystem root. Returns "" when no
// file is found. Both start and home are resolved through symlinks
// first so the home boundary is recognized.
func Find(start, home string) (string, error) {
	current, err := resolve(start)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", start, err)
	}
	homeResolved := ""
	if home != "" {
		// A missing home directory only removes the boundary.
		homeResolved, _ = resolve(home)
	}

	for {
		candidate := filepath.Join(current, FileName)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission) {
			return "", fmt.Errorf("checking %q: %w", candidate, err)
		}

		if current == homeResolved {
			return "", nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", nil
		}
		current = parent
	}
}

// Load reads an instructions file, rejecting files over MaxSize.
func Load(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("reading instructions file: %w", err)
	}
	if info.Size() > MaxSize {
		return "", fmt.Errorf("%w (%d bytes, max %d): %s", ErrTooLarge, info.Size(), MaxSize, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading instructions file: %w", err)
	}
	return string(data), nil
}

func resolve(path string) (string, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(absolute)
}
