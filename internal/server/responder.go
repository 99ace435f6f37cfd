// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/cortex/internal/model"
)

// ReplyRequest carries everything a responder may draw on to answer.
type ReplyRequest struct {
	Chat        *model.Chat
	Personality *model.Personality
	History     []*model.Message
	Message     string
	Files       []string
}

// Responder produces the assistant's reply to a message, emitting it
// incrementally through emit. Returning an error aborts the stream and is
// reported to the client in-band.
type Responder interface {
	Reply(ctx context.Context, req *ReplyRequest, emit func(chunk string) error) error
}

// EchoResponder is the built-in development responder: it streams back a
// short acknowledgement of the message, word by word, so that client-side
// streaming behavior can be exercised without a real model.
type EchoResponder struct {
	// Delay between emitted chunks. Zero means no artificial pacing.
	Delay time.Duration
}

func (r *EchoResponder) Reply(ctx context.Context, req *ReplyRequest, emit func(string) error) error {
	name := "Assistant"
	if req.Personality != nil {
		name = req.Personality.Name
	}

	reply := fmt.Sprintf("[%s] You said: %s", name, req.Message)
	if len(req.Files) > 0 {
		reply += fmt.Sprintf(" (with %d attached file(s))", len(req.Files))
	}

	words := strings.Split(reply, " ")
	for i, word := range words {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := emit(chunk); err != nil {
			return err
		}
		if r.Delay > 0 {
			select {
			case <-time.After(r.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}
