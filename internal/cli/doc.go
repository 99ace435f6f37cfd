// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the plain-terminal mode: "cortex ask" one-shot
// and REPL chat without the full TUI, plus terminal capability detection.
package cli
