// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/cortex/internal/util"
)

// TitleMaxRunes is the number of runes kept when deriving a chat title from
// the first message of a chat.
const TitleMaxRunes = 50

// Chat is a persisted conversation thread. The backend is the system of
// record for chats; the client state store only caches them.
type Chat struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	PersonalityID string    `json:"personality_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewChat creates a chat with a generated ID and current timestamps.
// The backend normally assigns ids; this is used by the development server.
func NewChat(title, personalityID string) *Chat {
	now := time.Now().UTC()
	return &Chat{
		ID:            uuid.NewString(),
		Title:         title,
		PersonalityID: personalityID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// DeriveTitle derives a chat title from the first message sent to it:
// the first 50 runes, with an ellipsis appended when truncated.
func DeriveTitle(text string) string {
	return util.TruncateRunesSuffix(text, TitleMaxRunes, "...")
}
