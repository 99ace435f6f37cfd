// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	"github.com/jeranaias/cortex/internal/model"
)

// StreamState is the per-chat streaming status. Stream slots are fully
// independent: chats may stream concurrently without touching each other's
// entries.
type StreamState struct {
	// Streaming is true only between stream start and stream end or error
	// for this chat.
	Streaming bool

	// Response is the accumulated partial text of the in-flight stream. It
	// is empty exactly at stream start and again at stream end, whether the
	// stream succeeded or failed.
	Response string
}

// State is the complete chat state visible to the UI. Treat snapshots as
// immutable: the reducer copies maps on write and never mutates a slice in
// place, so a snapshot taken at any point stays valid forever.
type State struct {
	// Chats is the ordered chat list, most recent first.
	Chats []*model.Chat

	// CurrentChatID is the selected chat, or empty when none is selected.
	CurrentChatID string

	// Messages maps chat id to its insertion-ordered message list.
	Messages map[string][]*model.Message

	// Streams maps chat id to its streaming status.
	Streams map[string]StreamState

	// Loading reports an in-flight non-streaming backend operation.
	Loading bool

	// Err is the single error slot, last write wins. Nil between failures.
	Err error
}

// NewState returns an empty initial state.
func NewState() State {
	return State{
		Messages: make(map[string][]*model.Message),
		Streams:  make(map[string]StreamState),
	}
}

// CurrentChat returns the selected chat, or nil when none is selected.
func (s State) CurrentChat() *model.Chat {
	for _, chat := range s.Chats {
		if chat.ID == s.CurrentChatID {
			return chat
		}
	}
	return nil
}

// Stream returns the stream state for a chat. Missing entries read as the
// zero value: not streaming, empty response.
func (s State) Stream(chatID string) StreamState {
	return s.Streams[chatID]
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Transition is one kind of state change. The set is closed: every type in
// this package implementing the marker method is handled exhaustively by the
// reducer, and an unknown transition is a programming error.
type Transition interface {
	transition()
}

// SetLoading sets the global loading flag.
type SetLoading struct{ Loading bool }

// SetError writes the error slot; a nil Err clears it. Last write wins -
// concurrent operations racing on this slot is an accepted limitation.
type SetError struct{ Err error }

// SetChats replaces the chat list, e.g. after a backend refresh.
type SetChats struct{ Chats []*model.Chat }

// ChatCreated prepends a newly created chat and seeds its empty message list.
type ChatCreated struct{ Chat *model.Chat }

// SetCurrentChat selects a chat; an empty ID deselects.
type SetCurrentChat struct{ ChatID string }

// SetMessages replaces a chat's message list wholesale. Used on select, when
// the backend history is authoritative.
type SetMessages struct {
	ChatID   string
	Messages []*model.Message
}

// AppendMessage appends one message to its chat's list. Appending to a chat
// with no list yet initializes the list first; a missing key never fails and
// never discards the message.
type AppendMessage struct{ Message *model.Message }

// SetStreaming flips the streaming flag of one chat's stream slot.
type SetStreaming struct {
	ChatID    string
	Streaming bool
}

// SetStreamedResponse replaces the accumulated partial text of one chat's
// stream slot. The payload is the full accumulation so far, not a delta.
type SetStreamedResponse struct {
	ChatID   string
	Response string
}

// ClearStreamedResponse resets one chat's accumulated partial text.
type ClearStreamedResponse struct{ ChatID string }

// SetChatTitle renames a chat in the chat list.
type SetChatTitle struct{ ChatID, Title string }

// SetChatPersonality changes a chat's personality in the chat list.
type SetChatPersonality struct{ ChatID, PersonalityID string }

// RemoveChat drops a chat, its message list, and its stream state in one
// step, leaving no dangling references. Deselects the chat if selected.
type RemoveChat struct{ ChatID string }

func (SetLoading) transition()            {}
func (SetError) transition()              {}
func (SetChats) transition()              {}
func (ChatCreated) transition()           {}
func (SetCurrentChat) transition()        {}
func (SetMessages) transition()           {}
func (AppendMessage) transition()         {}
func (SetStreaming) transition()          {}
func (SetStreamedResponse) transition()   {}
func (ClearStreamedResponse) transition() {}
func (SetChatTitle) transition()          {}
func (SetChatPersonality) transition()    {}
func (RemoveChat) transition()            {}

// =============================================================================
// REDUCER
// =============================================================================

// reduce applies one transition to a state snapshot and returns the next
// snapshot. It is a pure function of its inputs: it reads nothing else and
// never mutates prev. Untouched map entries keep their identity across
// transitions.
func reduce(prev State, t Transition) State {
	next := prev

	switch t := t.(type) {
	case SetLoading:
		next.Loading = t.Loading

	case SetError:
		next.Err = t.Err

	case SetChats:
		next.Chats = t.Chats

	case ChatCreated:
		chats := make([]*model.Chat, 0, len(prev.Chats)+1)
		chats = append(chats, t.Chat)
		chats = append(chats, prev.Chats...)
		next.Chats = chats
		next.Messages = cloneMessages(prev.Messages)
		next.Messages[t.Chat.ID] = []*model.Message{}

	case SetCurrentChat:
		next.CurrentChatID = t.ChatID

	case SetMessages:
		next.Messages = cloneMessages(prev.Messages)
		next.Messages[t.ChatID] = t.Messages

	case AppendMessage:
		chatID := t.Message.ChatID
		existing := prev.Messages[chatID]
		msgs := make([]*model.Message, 0, len(existing)+1)
		msgs = append(msgs, existing...)
		msgs = append(msgs, t.Message)
		next.Messages = cloneMessages(prev.Messages)
		next.Messages[chatID] = msgs

	case SetStreaming:
		next.Streams = cloneStreams(prev.Streams)
		stream := next.Streams[t.ChatID]
		stream.Streaming = t.Streaming
		next.Streams[t.ChatID] = stream

	case SetStreamedResponse:
		next.Streams = cloneStreams(prev.Streams)
		stream := next.Streams[t.ChatID]
		stream.Response = t.Response
		next.Streams[t.ChatID] = stream

	case ClearStreamedResponse:
		next.Streams = cloneStreams(prev.Streams)
		stream := next.Streams[t.ChatID]
		stream.Response = ""
		next.Streams[t.ChatID] = stream

	case SetChatTitle:
		next.Chats = updateChat(prev.Chats, t.ChatID, func(chat model.Chat) model.Chat {
			chat.Title = t.Title
			return chat
		})

	case SetChatPersonality:
		next.Chats = updateChat(prev.Chats, t.ChatID, func(chat model.Chat) model.Chat {
			chat.PersonalityID = t.PersonalityID
			return chat
		})

	case RemoveChat:
		chats := make([]*model.Chat, 0, len(prev.Chats))
		for _, chat := range prev.Chats {
			if chat.ID != t.ChatID {
				chats = append(chats, chat)
			}
		}
		next.Chats = chats
		next.Messages = cloneMessages(prev.Messages)
		delete(next.Messages, t.ChatID)
		next.Streams = cloneStreams(prev.Streams)
		delete(next.Streams, t.ChatID)
		if prev.CurrentChatID == t.ChatID {
			next.CurrentChatID = ""
		}

	default:
		panic(fmt.Sprintf("chat: unhandled transition %T", t))
	}

	return next
}

func cloneMessages(m map[string][]*model.Message) map[string][]*model.Message {
	out := make(map[string][]*model.Message, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStreams(m map[string]StreamState) map[string]StreamState {
	out := make(map[string]StreamState, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// updateChat returns a chat list with one chat replaced by an updated copy.
// Other elements keep their identity.
func updateChat(chats []*model.Chat, chatID string, fn func(model.Chat) model.Chat) []*model.Chat {
	out := make([]*model.Chat, len(chats))
	for i, chat := range chats {
		if chat.ID == chatID {
			updated := fn(*chat)
			out[i] = &updated
		} else {
			out[i] = chat
		}
	}
	return out
}
