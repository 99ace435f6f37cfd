// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cortex/internal/chat"
	"github.com/jeranaias/cortex/internal/fs"
	"github.com/jeranaias/cortex/internal/model"
)

func TestTruncateCell(t *testing.T) {
	assert.Equal(t, "hello", truncateCell("hello", 10))
	assert.Equal(t, "hell…", truncateCell("hello world", 5))
	assert.Equal(t, "", truncateCell("hello", 0))
	// CJK runes occupy two cells each.
	assert.Equal(t, "日本…", truncateCell("日本語テキスト", 5))
}

func TestPadCell(t *testing.T) {
	assert.Equal(t, "ab   ", padCell("ab", 5))
	assert.Equal(t, "abcdef", padCell("abcdef", 5))
	assert.Equal(t, "日本 ", padCell("日本", 5))
}

func TestCarryExpansion(t *testing.T) {
	old := []*fs.Node{
		{ID: "1", Entry: fs.Entry{Path: "/w/src", IsDirectory: true}, Expanded: true, Children: []*fs.Node{
			{ID: "2", Entry: fs.Entry{Path: "/w/src/deep", IsDirectory: true}, Expanded: true},
		}},
		{ID: "3", Entry: fs.Entry{Path: "/w/docs", IsDirectory: true}},
	}
	fresh := []*fs.Node{
		{ID: "a", Entry: fs.Entry{Path: "/w/src", IsDirectory: true}, Children: []*fs.Node{
			{ID: "b", Entry: fs.Entry{Path: "/w/src/deep", IsDirectory: true}},
			{ID: "c", Entry: fs.Entry{Path: "/w/src/new", IsDirectory: true}},
		}},
		{ID: "d", Entry: fs.Entry{Path: "/w/docs", IsDirectory: true}},
	}

	carryExpansion(old, fresh)

	assert.True(t, fresh[0].Expanded)
	assert.True(t, fresh[0].Children[0].Expanded)
	assert.False(t, fresh[0].Children[1].Expanded, "new directories start collapsed")
	assert.False(t, fresh[1].Expanded)
}

func TestNodeDepths(t *testing.T) {
	tree := []*fs.Node{
		{ID: "root", Children: []*fs.Node{
			{ID: "child", Children: []*fs.Node{{ID: "leaf"}}},
		}},
		{ID: "sibling"},
	}
	depths := nodeDepths(tree)
	assert.Equal(t, 0, depths["root"])
	assert.Equal(t, 1, depths["child"])
	assert.Equal(t, 2, depths["leaf"])
	assert.Equal(t, 0, depths["sibling"])
}

func testModel(state chat.State) Model {
	m := Model{state: state, width: 100, height: 40, sidebarVisible: true}
	m.keys = DefaultKeyMap()
	return m
}

func TestRenderTranscript_NoChat(t *testing.T) {
	m := testModel(chat.NewState())
	assert.Contains(t, m.renderTranscript(), "No chat selected")
}

func TestRenderTranscript_MessagesAndStream(t *testing.T) {
	state := chat.NewState()
	state.CurrentChatID = "c1"
	state.Messages = map[string][]*model.Message{
		"c1": {
			{Role: model.RoleUser, Content: "hello", Timestamp: time.Now()},
			{Role: model.RoleAssistant, Content: "hi there", Timestamp: time.Now()},
		},
	}
	state.Streams = map[string]chat.StreamState{
		"c1": {Streaming: true, Response: "thinking about"},
	}

	out := testModel(state).renderTranscript()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "hi there")
	assert.Contains(t, out, "thinking about")
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "Assistant")
}

func TestTranscriptWidth(t *testing.T) {
	m := testModel(chat.NewState())
	withSidebar := m.transcriptWidth()

	m.sidebarVisible = false
	assert.Equal(t, withSidebar+sidebarWidth, m.transcriptWidth())

	m.width = 10
	assert.Equal(t, 20, m.transcriptWidth(), "clamped to a usable minimum")
}

func TestHighlightFile_FallsBackToPlainText(t *testing.T) {
	content := "not any recognizable language \x00"
	out := highlightFile("data.bin", content)
	assert.NotEmpty(t, out)
}

func TestPreviewScrollBounds(t *testing.T) {
	p := newPreview("main.go", "package main\n\nfunc main() {}\n", 80)
	p.ScrollUp()
	assert.Equal(t, 0, p.offset)

	for i := 0; i < 50; i++ {
		p.ScrollDown()
	}
	assert.Less(t, p.offset, len(p.lines))

	p.ScrollUp()
	assert.GreaterOrEqual(t, p.offset, 0)
}

func TestRootChanged_ResetsTree(t *testing.T) {
	m := testModel(chat.NewState())
	m.tree = []*fs.Node{{ID: "stale", Entry: fs.Entry{Path: "/old/src"}}}
	m.flat = fs.Flatten(m.tree)
	m.fileCursor = 1

	updated, cmd := m.Update(rootChangedMsg{Root: "/new/workspace"})
	got := updated.(Model)
	assert.Equal(t, "/new/workspace", got.rootDir)
	assert.Nil(t, got.tree)
	assert.Empty(t, got.flat)
	assert.Equal(t, 0, got.fileCursor)
	assert.Equal(t, tabFiles, got.tab)
	assert.NotNil(t, cmd, "a rescan must be scheduled")
}

func TestRenamePrompt_SeedsCommitsAndCancels(t *testing.T) {
	state := chat.NewState()
	state.Chats = []*model.Chat{{ID: "c1", Title: "Old title"}}
	m := testModel(state)
	m.focus = focusSidebar

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	got := updated.(Model)
	assert.Equal(t, promptRenameChat, got.promptKind)
	assert.Equal(t, "Old title", got.prompt.Value())
	assert.Equal(t, "c1", got.promptChat)

	// Enter commits and schedules the rename.
	updated, cmd := got.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotNil(t, cmd)
	assert.Equal(t, promptNone, updated.(Model).promptKind)

	// Esc drops the prompt without renaming.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	updated, cmd = updated.(Model).Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.Equal(t, promptNone, updated.(Model).promptKind)
}

func TestNewEntryPrompt_TargetsSelectedDirectory(t *testing.T) {
	m := testModel(chat.NewState())
	m.focus = focusSidebar
	m.tab = tabFiles
	m.rootDir = "/w"
	m.tree = []*fs.Node{
		{ID: "1", Entry: fs.Entry{Path: "/w/notes", IsDirectory: true}},
		{ID: "2", Entry: fs.Entry{Path: "/w/readme.md"}},
	}
	m.flat = fs.Flatten(m.tree)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	got := updated.(Model)
	assert.Equal(t, promptNewFile, got.promptKind)
	assert.Equal(t, "/w/notes", got.promptDir, "a selected directory is the target")

	m.fileCursor = 1
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("A")})
	got = updated.(Model)
	assert.Equal(t, promptNewDir, got.promptKind)
	assert.Equal(t, "/w", got.promptDir, "a selected file resolves to its parent")
}

func TestDeleteEntry_RemovesFromDisk(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "scratch.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	m := testModel(chat.NewState())
	m.focus = focusSidebar
	m.tab = tabFiles
	m.bridge = fs.NewLocal()
	m.tree = []*fs.Node{{ID: "1", Entry: fs.Entry{Path: path}}}
	m.flat = fs.Flatten(m.tree)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	require.NotNil(t, cmd)
	op, ok := cmd().(fsOpDoneMsg)
	require.True(t, ok)
	require.NoError(t, op.Err)
	assert.NoFileExists(t, path)
}

func TestNextPersonality_Cycles(t *testing.T) {
	m := testModel(chat.NewState())
	m.personalities = []*model.Personality{
		{ID: "assistant"}, {ID: "mentor"}, {ID: "editor"},
	}
	assert.Equal(t, "mentor", m.nextPersonality("assistant"))
	assert.Equal(t, "assistant", m.nextPersonality("editor"))
	assert.Equal(t, "assistant", m.nextPersonality("unknown"))
}

func TestPersonalityName(t *testing.T) {
	m := testModel(chat.NewState())
	m.personalities = []*model.Personality{{ID: "mentor", Name: "Mentor"}}
	assert.Equal(t, "Mentor", m.personalityName("mentor"))
	assert.Equal(t, "assistant", m.personalityName(""), "id shown until the list loads")
}

func TestSwitchPersonality_SchedulesUpdate(t *testing.T) {
	state := chat.NewState()
	state.Chats = []*model.Chat{{ID: "c1", PersonalityID: "assistant"}}
	m := testModel(state)
	m.focus = focusSidebar
	m.controller = chat.NewController(chat.NewStore(), nil)
	m.personalities = []*model.Personality{{ID: "assistant"}, {ID: "mentor"}}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.NotNil(t, cmd)
}
