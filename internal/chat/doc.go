// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the client-side chat engine: the reducer-style
// state store holding every chat's message list and streaming status, and the
// controller that sequences network I/O against it.
//
// The store is the single source of truth for chat state. All mutation goes
// through a closed set of transitions applied by a pure reducer; nothing else
// writes the state. The UI only ever reads snapshots.
package chat
