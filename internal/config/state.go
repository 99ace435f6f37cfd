// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/cortex/internal/util"
)

// State holds mutable runtime state persisted across sessions. Kept apart
// from Config so that programmatic writes never clobber hand edits to the
// config file.
type State struct {
	// LastRootDir is the most recently opened workspace directory
	LastRootDir string `toml:"last_root_dir"`
}

// StatePath returns the path to the state file.
func StatePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.toml"), nil
}

// LoadState loads persisted state. A missing file yields empty state.
func LoadState() (*State, error) {
	path, err := StatePath()
	if err != nil {
		return nil, err
	}
	return LoadStateFromPath(path)
}

// LoadStateFromPath loads persisted state from a specific file.
func LoadStateFromPath(path string) (*State, error) {
	st := &State{}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return st, nil
	}
	if _, err := toml.DecodeFile(path, st); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}
	return st, nil
}

// SaveState persists state to the default state file.
func SaveState(st *State) error {
	path, err := StatePath()
	if err != nil {
		return err
	}
	return SaveStateToPath(st, path)
}

// SaveStateToPath persists state to a specific file.
// RELIABILITY: Atomic write prevents a torn state file on crash.
func SaveStateToPath(st *State, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(st); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// ResolveRoot picks the workspace root directory for this session:
// the remembered last root if it still exists, then the configured
// default root, then the home directory.
func ResolveRoot(cfg *Config, st *State) string {
	if st != nil && st.LastRootDir != "" {
		if info, err := os.Stat(st.LastRootDir); err == nil && info.IsDir() {
			return st.LastRootDir
		}
	}
	if cfg != nil && cfg.UI.DefaultRoot != "" {
		if info, err := os.Stat(cfg.UI.DefaultRoot); err == nil && info.IsDir() {
			return cfg.UI.DefaultRoot
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
