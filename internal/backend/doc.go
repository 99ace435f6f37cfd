// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend implements the HTTP client for the cortex chat backend:
// the chat CRUD surface and the token-streaming send operation.
//
// The backend streams responses as raw chunked text with two in-band control
// markers mixed into the byte stream instead of a separate channel:
//
//	[END]          normal completion, possibly with trailing text before it
//	[ERROR]<msg>   abnormal completion; the remainder of the chunk is the
//	               error message
//
// The stream decoder turns arbitrarily-sized byte chunks into text tokens
// and recognizes those markers; the client drives it over the response body.
package backend
