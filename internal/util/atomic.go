// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// RELIABILITY: config and state saves must never leave a torn file
//
// AtomicWriteFile replaces the file at path with data. The bytes go to a
// temp file in the target's directory, are fsynced, and land via rename, so
// a crash leaves either the previous file or the complete new one on disk.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	// The temp file has to share the target's directory: rename is only
	// atomic within one filesystem.
	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".tmp-")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	discard := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return discard(fmt.Errorf("writing %s: %w", tmpName, err))
	}
	if err := tmp.Sync(); err != nil {
		return discard(fmt.Errorf("syncing %s: %w", tmpName, err))
	}
	if err := tmp.Chmod(perm); err != nil {
		return discard(fmt.Errorf("chmod %s: %w", tmpName, err))
	}
	// Rename of an open file fails on Windows, so close first.
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", target, err)
	}
	return nil
}
