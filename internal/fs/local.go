// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jeranaias/cortex/internal/util"
)

// MaxReadSize is the maximum file size ReadFile will load (10MB). Larger
// files are refused rather than ballooning memory for a preview pane.
const MaxReadSize = 10 * 1024 * 1024

// Local is the Bridge over the local OS filesystem.
type Local struct{}

// NewLocal creates a local filesystem bridge.
func NewLocal() *Local {
	return &Local{}
}

// ListDirectory implements Bridge.
func (l *Local) ListDirectory(path string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		entry := Entry{
			Name:        de.Name(),
			Path:        filepath.Join(path, de.Name()),
			IsDirectory: de.IsDir(),
		}
		// Metadata is best-effort: a file deleted mid-listing still shows up
		// with zero values rather than failing the whole listing.
		if info, err := de.Info(); err == nil {
			entry.LastModified = info.ModTime()
			if !de.IsDir() {
				entry.Size = info.Size()
			}
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDirectory != entries[j].IsDirectory {
			return entries[i].IsDirectory
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// ReadFile implements Bridge.
func (l *Local) ReadFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if info.Size() > MaxReadSize {
		return "", fmt.Errorf("reading %s: file too large (%d bytes)", path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile implements Bridge. Writes are atomic so an interrupted save
// never leaves a half-written file in the workspace.
func (l *Local) WriteFile(path string, content string) error {
	if err := util.AtomicWriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// CreateDirectory implements Bridge.
func (l *Local) CreateDirectory(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

// Delete implements Bridge.
func (l *Local) Delete(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	return nil
}

// PickDirectory implements Bridge. A terminal process has no native dialog;
// the TUI layers its own picker on top.
func (l *Local) PickDirectory() (string, error) {
	return "", ErrNoPicker
}
