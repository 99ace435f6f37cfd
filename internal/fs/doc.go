// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fs provides the filesystem bridge behind the sidebar: directory
// listing, file read/write/delete, and change watching for the workspace
// tree. The chat core consumes the bridge as a capability interface and
// treats every call as fallible.
package fs
