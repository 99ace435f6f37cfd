// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for cortex.
//
// Configuration lives in TOML under ~/.cortex, with sensible defaults,
// environment variable overrides, and validation. Mutable runtime state
// (the last opened workspace) is kept in a separate state file so that
// the config file stays hand-editable.
package config
