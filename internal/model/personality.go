// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// DefaultPersonalityID is the personality used when a chat is created without
// an explicit selection.
const DefaultPersonalityID = "assistant"

// Personality is a named backend-side response profile selectable per chat.
type Personality struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
