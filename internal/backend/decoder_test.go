// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed runs chunks through a fresh decoder, collecting emitted tokens.
// Returns the tokens, the accumulated text, and the terminal result (nil if
// the stream never completed or failed).
func feed(t *testing.T, chunks ...string) (tokens []string, text string, terminal *DecodeResult) {
	t.Helper()
	d := NewStreamDecoder()
	for _, chunk := range chunks {
		res := d.Decode([]byte(chunk))
		if res.Token != "" {
			tokens = append(tokens, res.Token)
		}
		if res.Done {
			return tokens, d.Text(), &res
		}
	}
	return tokens, d.Text(), nil
}

func TestDecoder_TokenConcatenation(t *testing.T) {
	// Without markers, the accumulated text is the simple concatenation of
	// all chunks, one token per chunk.
	chunks := []string{"The ", "quick ", "brown ", "fox"}
	tokens, text, terminal := feed(t, chunks...)

	assert.Nil(t, terminal)
	assert.Equal(t, chunks, tokens)
	assert.Equal(t, "The quick brown fox", text)
}

func TestDecoder_EndMarkerWithTrailingText(t *testing.T) {
	tokens, text, terminal := feed(t, "hello [END]")

	require.NotNil(t, terminal)
	assert.True(t, terminal.Done)
	assert.False(t, terminal.Failed)
	assert.Equal(t, []string{"hello "}, tokens)
	assert.Equal(t, "hello ", text)
}

func TestDecoder_EndMarkerAlone(t *testing.T) {
	tokens, text, terminal := feed(t, "[END]")

	require.NotNil(t, terminal)
	assert.True(t, terminal.Done)
	// Empty tokens are skipped, never emitted.
	assert.Empty(t, tokens)
	assert.Equal(t, "", text)
}

func TestDecoder_EndMarkerSplitAcrossChunks(t *testing.T) {
	tokens, text, terminal := feed(t, "hello [EN", "D]")

	require.NotNil(t, terminal)
	assert.True(t, terminal.Done)
	assert.Equal(t, []string{"hello "}, tokens)
	assert.Equal(t, "hello ", text)
}

func TestDecoder_ErrorMarker(t *testing.T) {
	tokens, _, terminal := feed(t, "partial[ERROR]backend failed")

	require.NotNil(t, terminal)
	assert.True(t, terminal.Failed)
	assert.Equal(t, "backend failed", terminal.Message)
	// No token is emitted for the failing chunk, before or after the marker.
	assert.Empty(t, tokens)
}

func TestDecoder_ErrorMarkerSplitAcrossChunks(t *testing.T) {
	tokens, _, terminal := feed(t, "so far so good", "\n[ERR", "OR] boom")

	require.NotNil(t, terminal)
	assert.True(t, terminal.Failed)
	assert.Equal(t, "boom", terminal.Message)
	assert.Equal(t, []string{"so far so good"}, tokens)
}

func TestDecoder_ErrorMarkerEmptyMessage(t *testing.T) {
	_, _, terminal := feed(t, "[ERROR]")

	require.NotNil(t, terminal)
	assert.True(t, terminal.Failed)
	assert.Equal(t, "", terminal.Message)
}

func TestDecoder_MultiByteRuneSplitAcrossChunks(t *testing.T) {
	// "日" is e6 97 a5; split it across three chunks.
	raw := []byte("日本")
	d := NewStreamDecoder()

	res := d.Decode(raw[:1])
	assert.Equal(t, "", res.Token)
	res = d.Decode(raw[1:4])
	assert.Equal(t, "日", res.Token)
	res = d.Decode(raw[4:])
	assert.Equal(t, "本", res.Token)

	assert.Equal(t, "日本", d.Text())
}

func TestDecoder_BracketThatIsNotAMarker(t *testing.T) {
	tokens, text, terminal := feed(t, "a[b]c", "[ENDLESS fun")

	assert.Nil(t, terminal)
	// "[ENDLESS" rules out the end marker within the same chunk, so nothing
	// is withheld and no completion is signaled.
	assert.Equal(t, "a[b]c[ENDLESS fun", text)
	assert.Equal(t, strings.Join(tokens, ""), text)
}

func TestDecoder_FinishWithoutEndMarker(t *testing.T) {
	d := NewStreamDecoder()
	d.Decode([]byte("partial response"))

	res := d.Finish()
	assert.True(t, res.Done)
	assert.False(t, res.Failed)
	assert.Equal(t, "partial response", d.Text())
}

func TestDecoder_FinishReleasesHeldMarkerPrefix(t *testing.T) {
	d := NewStreamDecoder()
	res := d.Decode([]byte("see section [E"))
	assert.Equal(t, "see section ", res.Token)

	fin := d.Finish()
	assert.True(t, fin.Done)
	assert.Equal(t, "[E", fin.Token)
	assert.Equal(t, "see section [E", d.Text())
}

func TestDecoder_FinishDropsIncompleteRune(t *testing.T) {
	raw := []byte("ok日")
	d := NewStreamDecoder()
	d.Decode(raw[:len(raw)-1]) // truncated mid-rune

	fin := d.Finish()
	assert.True(t, fin.Done)
	assert.Equal(t, "ok", d.Text())
}

func TestDecoder_DoneIsSticky(t *testing.T) {
	d := NewStreamDecoder()
	d.Decode([]byte("x[END]"))

	res := d.Decode([]byte("more"))
	assert.True(t, res.Done)
	assert.Equal(t, "", res.Token)
	assert.Equal(t, "x", d.Text())
}

func TestMarkerPrefixLen(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"hello", 0},
		{"hello [", 1},
		{"hello [E", 2},
		{"hello [EN", 3},
		{"hello [END", 4},
		{"hello [ERRO", 5},
		{"hello [ERROR", 6},
		{"[END]", 0}, // complete markers are handled before prefix checks
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, markerPrefixLen(tt.text), "text %q", tt.text)
	}
}
