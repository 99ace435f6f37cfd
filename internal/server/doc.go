// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements the cortex development backend: an HTTP server
// speaking the same wire protocol as the production chat backend, with
// SQLite persistence and a pluggable responder. It exists so the client can
// be developed and tested without a model behind it.
package server
