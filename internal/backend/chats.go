// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jeranaias/cortex/internal/model"
)

// ListChats fetches all chats, most recently updated first.
func (c *Client) ListChats(ctx context.Context) ([]*model.Chat, error) {
	var chats []*model.Chat
	if err := c.doJSON(ctx, http.MethodGet, "/chats", nil, &chats); err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	return chats, nil
}

// CreateChat creates a chat with the given title and personality and returns
// the backend's record of it.
func (c *Client) CreateChat(ctx context.Context, title, personalityID string) (*model.Chat, error) {
	req := &createChatRequest{ChatTitle: title, PersonalityID: personalityID}
	var chat model.Chat
	if err := c.doJSON(ctx, http.MethodPost, "/chats", req, &chat); err != nil {
		return nil, fmt.Errorf("creating chat: %w", err)
	}
	return &chat, nil
}

// GetMessages fetches the full message history of a chat. The backend is
// authoritative: callers replace, not merge, their local copy.
func (c *Client) GetMessages(ctx context.Context, chatID string) ([]*model.Message, error) {
	var messages []*model.Message
	if err := c.doJSON(ctx, http.MethodGet, "/chats/"+chatID, nil, &messages); err != nil {
		return nil, fmt.Errorf("fetching chat %s: %w", chatID, err)
	}
	return messages, nil
}

// UpdateChatTitle renames a chat.
func (c *Client) UpdateChatTitle(ctx context.Context, chatID, title string) error {
	req := map[string]string{"title": title}
	if err := c.doJSON(ctx, http.MethodPut, "/chats/"+chatID, req, nil); err != nil {
		return fmt.Errorf("renaming chat %s: %w", chatID, err)
	}
	return nil
}

// UpdateChatPersonality changes the personality a chat responds with.
func (c *Client) UpdateChatPersonality(ctx context.Context, chatID, personalityID string) error {
	req := map[string]string{"personality_id": personalityID}
	if err := c.doJSON(ctx, http.MethodPut, "/chats/"+chatID+"/personality", req, nil); err != nil {
		return fmt.Errorf("updating personality of chat %s: %w", chatID, err)
	}
	return nil
}

// DeleteChat removes a chat and its messages from the backend.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/chats/"+chatID, nil, nil); err != nil {
		return fmt.Errorf("deleting chat %s: %w", chatID, err)
	}
	return nil
}

// ListPersonalities fetches the personalities the backend offers.
func (c *Client) ListPersonalities(ctx context.Context) ([]*model.Personality, error) {
	var personalities []*model.Personality
	if err := c.doJSON(ctx, http.MethodGet, "/personalities", nil, &personalities); err != nil {
		return nil, fmt.Errorf("listing personalities: %w", err)
	}
	return personalities, nil
}
