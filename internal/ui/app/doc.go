// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app provides the main cortex TUI: a chat transcript with a
// sidebar holding the chat list and the workspace file tree. The app only
// reads store snapshots and forwards user intents to the controller.
package app
