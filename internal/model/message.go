// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Message is a single message in a chat. Messages are append-only: once in a
// chat's history they are never edited or removed individually; only whole-chat
// deletion removes them.
//
// IDs are generated locally with uuid so that an optimistic message can be
// shown before the backend round trip completes. UUIDs cannot collide with
// each other or with server-assigned ids, so a later append never overwrites
// an earlier message.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
}

// NewMessage creates a message with a generated ID and current timestamp.
func NewMessage(chatID string, role Role, content, userID string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	}
}

// NewUserMessage creates a user message authored by userID.
func NewUserMessage(chatID, content, userID string) *Message {
	return NewMessage(chatID, RoleUser, content, userID)
}

// NewAssistantMessage creates an assistant message holding a complete
// streamed response.
func NewAssistantMessage(chatID, content string) *Message {
	return NewMessage(chatID, RoleAssistant, content, string(RoleAssistant))
}
