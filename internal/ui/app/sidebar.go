// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/cortex/internal/fs"
	"github.com/jeranaias/cortex/internal/ui/styles"
)

var (
	tabActiveStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(styles.TextMuted)

	sidebarTitleStyle = lipgloss.NewStyle().
				Foreground(styles.TextSecondary).
				Bold(true)

	streamingDotStyle = lipgloss.NewStyle().
				Foreground(styles.Amber)
)

// renderSidebar renders the sidebar pane at its fixed width.
func (m Model) renderSidebar(height int) string {
	inner := sidebarWidth - 4 // border and padding

	var tabs string
	if m.tab == tabChats {
		tabs = tabActiveStyle.Render("Chats") + "  " + tabInactiveStyle.Render("Files")
	} else {
		tabs = tabInactiveStyle.Render("Chats") + "  " + tabActiveStyle.Render("Files")
	}

	var body string
	if m.tab == tabChats {
		body = m.renderChatList(inner, height-3)
	} else {
		body = m.renderFileTree(inner, height-3)
	}

	frame := styles.PanelBorder
	if m.focus == focusSidebar {
		frame = styles.FocusedPanelBorder
	}
	return frame.
		Width(sidebarWidth - 2).
		Height(height).
		Padding(0, 1).
		Render(tabs + "\n\n" + body)
}

// renderChatList renders the chat list rows, marking the selected chat and
// any chat with a response streaming.
func (m Model) renderChatList(width, maxRows int) string {
	if len(m.state.Chats) == 0 {
		return styles.Hint.Render("no chats yet")
	}

	rows := make([]string, 0, len(m.state.Chats))
	for i, chat := range m.state.Chats {
		if i >= maxRows {
			break
		}
		title := truncateCell(chat.Title, width-2)
		if m.state.Streams[chat.ID].Streaming {
			title = streamingDotStyle.Render("*") + title
		}
		switch {
		case i == m.chatCursor && m.focus == focusSidebar && m.tab == tabChats:
			rows = append(rows, styles.Selected.Render(padCell(title, width)))
		case chat.ID == m.state.CurrentChatID:
			rows = append(rows, sidebarTitleStyle.Render(title))
		default:
			rows = append(rows, title)
		}
	}
	return strings.Join(rows, "\n")
}

// renderFileTree renders the visible (expanded) portion of the workspace
// tree, indented by depth.
func (m Model) renderFileTree(width, maxRows int) string {
	if m.treeErr != nil {
		return styles.ErrorText.Render("tree: " + m.treeErr.Error())
	}
	if len(m.flat) == 0 {
		return styles.Hint.Render(truncateCell(filepath.Base(m.rootDir)+" is empty", width))
	}

	depths := nodeDepths(m.tree)

	// Keep the cursor row visible in a window of maxRows.
	start := 0
	if m.fileCursor >= maxRows {
		start = m.fileCursor - maxRows + 1
	}

	rows := make([]string, 0, maxRows)
	for i := start; i < len(m.flat) && i-start < maxRows; i++ {
		node := m.flat[i]
		row := strings.Repeat("  ", depths[node.ID]) + nodeGlyph(node) + node.Entry.Name
		row = truncateCell(row, width)
		if i == m.fileCursor && m.focus == focusSidebar && m.tab == tabFiles {
			row = styles.Selected.Render(padCell(row, width))
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

// nodeGlyph marks directories and their expansion state.
func nodeGlyph(n *fs.Node) string {
	if !n.Entry.IsDirectory {
		return "  "
	}
	if n.Expanded {
		return "- "
	}
	return "+ "
}

// nodeDepths maps node ids to their depth in the tree, for indentation of
// the flattened view.
func nodeDepths(nodes []*fs.Node) map[string]int {
	depths := make(map[string]int)
	var walk func(ns []*fs.Node, depth int)
	walk = func(ns []*fs.Node, depth int) {
		for _, n := range ns {
			depths[n.ID] = depth
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
	return depths
}

// truncateCell fits s into width terminal cells, ellipsizing when needed.
// UNICODE: widths are measured in cells, not runes, so CJK stays aligned.
func truncateCell(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// padCell pads s to exactly width cells so selection highlights span the row.
func padCell(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

// statusLine summarizes connection and activity state for the bottom bar.
func (m Model) statusLine() string {
	parts := []string{fmt.Sprintf("%d chats", len(m.state.Chats))}
	if chat := m.state.CurrentChat(); chat != nil {
		parts = append(parts, m.personalityName(chat.PersonalityID))
	}
	if m.state.Loading {
		parts = append(parts, "loading")
	}
	if m.streaming() {
		parts = append(parts, "streaming")
	}
	if m.state.Err != nil {
		parts = append(parts, styles.ErrorText.Render(m.state.Err.Error()))
	}
	return strings.Join(parts, "  ·  ")
}
