// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/cortex/internal/backend"
	"github.com/jeranaias/cortex/internal/model"
)

// ErrStreamInFlight is returned when a message is sent to a chat whose
// previous response is still streaming. Sends to a busy chat are rejected
// rather than queued; the caller may retry once the stream settles. Other
// chats are unaffected and may stream concurrently.
var ErrStreamInFlight = errors.New("a response is already streaming for this chat")

// Backend is the slice of the backend client the controller drives. It is
// satisfied by *backend.Client and stubbed in tests.
type Backend interface {
	ListChats(ctx context.Context) ([]*model.Chat, error)
	CreateChat(ctx context.Context, title, personalityID string) (*model.Chat, error)
	GetMessages(ctx context.Context, chatID string) ([]*model.Message, error)
	UpdateChatTitle(ctx context.Context, chatID, title string) error
	UpdateChatPersonality(ctx context.Context, chatID, personalityID string) error
	DeleteChat(ctx context.Context, chatID string) error
	ListPersonalities(ctx context.Context) ([]*model.Personality, error)
	StreamMessage(ctx context.Context, chatID string, req *backend.SendRequest, onToken backend.TokenFunc) (string, error)
}

// Controller sequences the multi-step chat flows: it drives the backend and
// is the only component that applies transitions to the store. Every failure
// is caught here, written to the store's error slot and logged; no action
// leaves the loading or streaming flags stuck.
type Controller struct {
	store   *Store
	backend Backend
	userID  string

	mu            sync.Mutex
	personalityID string
	// inflight holds the cancel function of each chat's active stream. An
	// entry doubles as the per-chat send lock.
	inflight map[string]context.CancelFunc
}

// NewController creates a controller over the given store and backend.
func NewController(store *Store, be Backend) *Controller {
	return &Controller{
		store:         store,
		backend:       be,
		userID:        "user",
		personalityID: model.DefaultPersonalityID,
		inflight:      make(map[string]context.CancelFunc),
	}
}

// Store returns the controller's store, for consumers that read snapshots.
func (c *Controller) Store() *Store {
	return c.store
}

// SelectedPersonality returns the personality applied to newly created chats.
func (c *Controller) SelectedPersonality() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.personalityID
}

// SelectPersonality changes the personality applied to newly created chats.
// Falls back to the default when id is empty.
func (c *Controller) SelectPersonality(id string) {
	if id == "" {
		id = model.DefaultPersonalityID
	}
	c.mu.Lock()
	c.personalityID = id
	c.mu.Unlock()
}

// =============================================================================
// CHAT LIST ACTIONS
// =============================================================================

// LoadChats refreshes the chat list from the backend.
func (c *Controller) LoadChats(ctx context.Context) error {
	c.store.Apply(SetLoading{Loading: true})
	c.store.Apply(SetError{})
	defer c.store.Apply(SetLoading{Loading: false})

	chats, err := c.backend.ListChats(ctx)
	if err != nil {
		return c.fail("loading chats", err)
	}
	c.store.Apply(SetChats{Chats: chats})
	return nil
}

// CreateChat creates a chat on the backend, prepends it to the list, seeds
// its empty message list and selects it. Returns the created chat; callers
// of the auto-create path must check the error before proceeding.
func (c *Controller) CreateChat(ctx context.Context, title, personalityID string) (*model.Chat, error) {
	c.store.Apply(SetLoading{Loading: true})
	c.store.Apply(SetError{})
	defer c.store.Apply(SetLoading{Loading: false})

	if personalityID == "" {
		personalityID = c.SelectedPersonality()
	}
	chat, err := c.backend.CreateChat(ctx, title, personalityID)
	if err != nil {
		return nil, c.fail("creating chat", err)
	}
	c.store.Apply(ChatCreated{Chat: chat})
	c.store.Apply(SetCurrentChat{ChatID: chat.ID})
	return chat, nil
}

// SelectChat selects a chat and replaces its message list with the backend's
// history. Full replace, not merge: the backend is authoritative on select.
func (c *Controller) SelectChat(ctx context.Context, chatID string) error {
	c.store.Apply(SetLoading{Loading: true})
	c.store.Apply(SetError{})
	defer c.store.Apply(SetLoading{Loading: false})

	messages, err := c.backend.GetMessages(ctx, chatID)
	if err != nil {
		return c.fail("loading chat history", err)
	}
	c.store.Apply(SetCurrentChat{ChatID: chatID})
	c.store.Apply(SetMessages{ChatID: chatID, Messages: messages})
	return nil
}

// DeleteChat removes a chat from the backend and then from the store,
// cancelling any in-flight stream for it first so no stream state can be
// recreated after removal.
func (c *Controller) DeleteChat(ctx context.Context, chatID string) error {
	c.CancelStream(chatID)

	c.store.Apply(SetLoading{Loading: true})
	c.store.Apply(SetError{})
	defer c.store.Apply(SetLoading{Loading: false})

	if err := c.backend.DeleteChat(ctx, chatID); err != nil {
		return c.fail("deleting chat", err)
	}
	c.store.Apply(RemoveChat{ChatID: chatID})
	return nil
}

// RenameChat updates a chat's title on the backend and in the store.
func (c *Controller) RenameChat(ctx context.Context, chatID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	if err := c.backend.UpdateChatTitle(ctx, chatID, title); err != nil {
		return c.fail("renaming chat", err)
	}
	c.store.Apply(SetChatTitle{ChatID: chatID, Title: title})
	return nil
}

// SetChatPersonality updates a chat's personality on the backend and in the
// store, and remembers it as the selection for future chats.
func (c *Controller) SetChatPersonality(ctx context.Context, chatID, personalityID string) error {
	if err := c.backend.UpdateChatPersonality(ctx, chatID, personalityID); err != nil {
		return c.fail("updating personality", err)
	}
	c.store.Apply(SetChatPersonality{ChatID: chatID, PersonalityID: personalityID})
	c.SelectPersonality(personalityID)
	return nil
}

// =============================================================================
// SEND MESSAGE
// =============================================================================

// SendMessage runs the full send flow for one message:
//
//  1. empty or whitespace-only text is a no-op, not an error
//  2. with no chat id, a chat is created first with a title derived from the
//     text and the currently selected personality; the send aborts if that
//     fails
//  3. the chat's stream slot is marked streaming with an empty accumulation
//  4. the user message is appended optimistically, before any network reply
//  5. the backend stream is driven; every token advances the chat's
//     accumulated partial text (accumulation happens here, never read back
//     from the store, so no update can be lost)
//  6. on success the assistant message is appended with the complete text
//  7. on failure the error lands in the store's error slot; no assistant
//     message is synthesized
//  8. the streaming flag is always reset, on every exit path
//  9. the chat list is refreshed to pick up backend-side ordering changes
//
// Sends to distinct chats run concurrently without interference. A send to a
// chat that is already streaming returns ErrStreamInFlight immediately and
// changes nothing.
func (c *Controller) SendMessage(ctx context.Context, chatID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if chatID == "" {
		chat, err := c.CreateChat(ctx, model.DeriveTitle(text), "")
		if err != nil {
			return err
		}
		chatID = chat.ID
	}

	// Claim the chat's stream slot before touching any state.
	streamCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if _, busy := c.inflight[chatID]; busy {
		c.mu.Unlock()
		cancel()
		return ErrStreamInFlight
	}
	c.inflight[chatID] = cancel
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		delete(c.inflight, chatID)
		c.mu.Unlock()
	}()

	c.store.Apply(SetError{})
	c.store.Apply(SetStreaming{ChatID: chatID, Streaming: true})
	c.store.Apply(ClearStreamedResponse{ChatID: chatID})
	defer c.store.Apply(SetStreaming{ChatID: chatID, Streaming: false})

	c.store.Apply(AppendMessage{Message: model.NewUserMessage(chatID, text, c.userID)})

	req := &backend.SendRequest{
		Message:       text,
		Files:         ExtractFileRefs(text),
		PersonalityID: c.chatPersonality(chatID),
		CreatedAt:     time.Now().UTC(),
	}

	// The accumulation lives here in the caller: reading it back from store
	// state between tokens would race with other writers and lose updates.
	var accumulated strings.Builder
	full, err := c.backend.StreamMessage(streamCtx, chatID, req, func(token string) {
		accumulated.WriteString(token)
		c.store.Apply(SetStreamedResponse{ChatID: chatID, Response: accumulated.String()})
	})
	if err != nil {
		c.store.Apply(ClearStreamedResponse{ChatID: chatID})
		if errors.Is(err, context.Canceled) {
			// A cancelled stream is a user action, not a failure to report.
			return err
		}
		return c.fail("sending message", err)
	}

	c.store.Apply(AppendMessage{Message: model.NewAssistantMessage(chatID, full)})
	c.store.Apply(ClearStreamedResponse{ChatID: chatID})

	// Refresh the list so backend-side preview and ordering changes show up.
	if chats, err := c.backend.ListChats(ctx); err == nil {
		c.store.Apply(SetChats{Chats: chats})
	}
	return nil
}

// CancelStream aborts the in-flight stream of a chat, if any. The abort is
// honored at the transport's next chunk-read boundary; the send flow's defers
// then release the reader and reset the streaming flag.
func (c *Controller) CancelStream(chatID string) {
	c.mu.Lock()
	cancel, ok := c.inflight[chatID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

// chatPersonality resolves the personality to send for a chat: the chat's
// own, else the current selection.
func (c *Controller) chatPersonality(chatID string) string {
	for _, chat := range c.store.State().Chats {
		if chat.ID == chatID && chat.PersonalityID != "" {
			return chat.PersonalityID
		}
	}
	return c.SelectedPersonality()
}

// fail records an action failure in the error slot and logs it. The returned
// error wraps the cause for callers that branch on the taxonomy.
func (c *Controller) fail(action string, err error) error {
	wrapped := fmt.Errorf("%s: %w", action, err)
	log.Printf("chat: %v", wrapped)
	c.store.Apply(SetError{Err: wrapped})
	return wrapped
}
