// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"strings"
	"unicode/utf8"
)

const (
	endMarker   = "[END]"
	errorMarker = "[ERROR]"
)

// DecodeResult classifies one decoded piece of the stream.
type DecodeResult struct {
	// Token is the text to emit for this piece. Empty tokens are skipped by
	// callers; the decoder never fabricates content.
	Token string

	// Done is true once the stream has completed, either via the end marker
	// or via Finish at end-of-stream.
	Done bool

	// Failed is true when the backend signaled failure via the error marker.
	// Message holds the text following the marker, whitespace-trimmed.
	Failed  bool
	Message string
}

// StreamDecoder converts raw bytes delivered in arbitrarily-sized chunks into
// logical text tokens and detects the in-band control markers.
//
// The decoder is stateful and belongs to exactly one request: it buffers an
// incomplete trailing UTF-8 sequence across chunks (a multi-byte character
// may be split at any byte boundary), and holds back any chunk suffix that
// could be the beginning of a marker split across chunks. It is not safe for
// reuse across requests and not safe for concurrent use.
type StreamDecoder struct {
	partial []byte // incomplete trailing UTF-8 sequence from the last chunk
	held    string // decoded text withheld because it may start a marker
	full    strings.Builder
	done    bool
}

// NewStreamDecoder creates a decoder for a single streaming response.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Decode processes the next raw chunk from the stream.
//
// Markers are stripped before any text is emitted: text preceding [END] in
// the same chunk becomes the final token; text following [ERROR] becomes the
// failure message and is never emitted as a token. Any text preceding [ERROR]
// in the same chunk is discarded rather than emitted, so a failed stream
// never grows the accumulation after the failure is known.
func (d *StreamDecoder) Decode(chunk []byte) DecodeResult {
	if d.done {
		return DecodeResult{Done: true}
	}

	data := chunk
	if len(d.partial) > 0 {
		data = append(d.partial, chunk...)
		d.partial = nil
	}

	// Hold back an incomplete trailing multi-byte sequence. Only the last
	// utf8.UTFMax-1 bytes can possibly be incomplete.
	cut := len(data)
	for i := len(data) - 1; i >= 0 && len(data)-i < utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		if !utf8.FullRune(data[i:]) {
			cut = i
		}
		break
	}
	if cut < len(data) {
		d.partial = append(d.partial, data[cut:]...)
	}

	text := d.held + string(data[:cut])
	d.held = ""

	// Whichever marker appears first in the piece wins.
	endIdx := strings.Index(text, endMarker)
	errIdx := strings.Index(text, errorMarker)

	if errIdx >= 0 && (endIdx < 0 || errIdx < endIdx) {
		d.done = true
		return DecodeResult{
			Done:    true,
			Failed:  true,
			Message: strings.TrimSpace(text[errIdx+len(errorMarker):]),
		}
	}

	if endIdx >= 0 {
		d.done = true
		token := text[:endIdx]
		d.full.WriteString(token)
		return DecodeResult{Token: token, Done: true}
	}

	// A marker may straddle the chunk boundary: withhold any suffix that is a
	// proper prefix of a marker until the next chunk settles it.
	if n := markerPrefixLen(text); n > 0 {
		d.held = text[len(text)-n:]
		text = text[:len(text)-n]
	}

	d.full.WriteString(text)
	return DecodeResult{Token: text}
}

// Finish signals end-of-stream. A source that closes without ever sending
// [END] is an implicit clean completion with whatever text was accumulated.
// Withheld text that never turned into a marker is emitted as a final token;
// an incomplete trailing UTF-8 sequence at end-of-stream is dropped rather
// than emitted as corrupt bytes.
func (d *StreamDecoder) Finish() DecodeResult {
	if d.done {
		return DecodeResult{Done: true}
	}
	d.done = true
	d.partial = nil

	token := d.held
	d.held = ""
	d.full.WriteString(token)
	return DecodeResult{Token: token, Done: true}
}

// Text returns the full accumulated response text, marker text excluded. It
// equals the concatenation of every token the decoder has emitted.
func (d *StreamDecoder) Text() string {
	return d.full.String()
}

// markerPrefixLen returns the length of the longest suffix of text that is a
// proper prefix of one of the control markers, or 0 when no such suffix
// exists.
func markerPrefixLen(text string) int {
	best := 0
	for _, marker := range []string{endMarker, errorMarker} {
		max := len(marker) - 1
		if max > len(text) {
			max = len(text)
		}
		for n := max; n > best; n-- {
			if strings.HasSuffix(text, marker[:n]) {
				best = n
				break
			}
		}
	}
	return best
}
