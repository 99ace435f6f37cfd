// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"errors"
	"fmt"
)

// ErrChatNotFound indicates the backend does not know the requested chat.
var ErrChatNotFound = errors.New("chat not found")

// TransportError represents a network or HTTP level failure reaching the
// backend: a non-success response status, a connection error, or an
// unreadable body. Status is 0 when the failure happened below HTTP.
type TransportError struct {
	Status int
	Cause  error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		if e.Cause != nil {
			return fmt.Sprintf("backend request failed (HTTP %d): %v", e.Status, e.Cause)
		}
		return fmt.Sprintf("backend request failed (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("backend request failed: %v", e.Cause)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// StreamError represents an explicit mid-stream failure signaled by the
// backend via the [ERROR] marker. Message is the text embedded after the
// marker, surfaced verbatim where possible.
type StreamError struct {
	Message string
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Message == "" {
		return "stream failed"
	}
	return e.Message
}
