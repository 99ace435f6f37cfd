// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fs

import (
	"errors"
	"time"
)

// ErrNoPicker is returned by bridges that cannot show a native directory
// picker. The TUI supplies its own picker in that case.
var ErrNoPicker = errors.New("no directory picker available")

// Entry describes one directory entry.
type Entry struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	IsDirectory  bool      `json:"is_directory"`
	Size         int64     `json:"size,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// Bridge is the capability interface over the filesystem. No retry logic is
// layered on top; callers surface failures directly.
type Bridge interface {
	// ListDirectory returns the entries of a directory, directories first,
	// each group sorted by name.
	ListDirectory(path string) ([]Entry, error)

	// ReadFile returns a file's content as text.
	ReadFile(path string) (string, error)

	// WriteFile replaces a file's content.
	WriteFile(path string, content string) error

	// CreateDirectory creates a directory, including missing parents.
	CreateDirectory(path string) error

	// Delete removes a file or directory tree.
	Delete(path string) error

	// PickDirectory shows a directory picker and returns the chosen path,
	// or ErrNoPicker when the bridge has no picker to show.
	PickDirectory() (string, error)
}
