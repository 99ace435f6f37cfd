// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cortex/internal/ui/styles"
)

// View renders the whole application.
func (m Model) View() string {
	if !m.ready {
		return "\n  starting up..."
	}

	header := styles.Header.Render("cortex") + "  " +
		styles.Hint.Render(m.chatTitle())

	var main string
	switch {
	case m.previewing && m.preview != nil:
		main = m.preview.Render(m.viewport.Height + m.input.Height() + 1)
	case m.picking:
		main = m.renderPicker(m.viewport.Height + m.input.Height() + 1)
	default:
		main = m.viewport.View() + "\n" + m.input.View()
	}

	if m.sidebarVisible {
		sidebar := m.renderSidebar(m.viewport.Height + m.input.Height())
		main = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
	}

	status := styles.StatusBar.Render(m.statusLine()) + "  " +
		styles.Hint.Render(m.helpLine())
	if m.promptKind != promptNone {
		status = styles.Header.Render(m.promptLabel()) + " " + m.prompt.View()
	}

	return header + "\n" + main + "\n" + status
}

// promptLabel names what the open prompt is asking for.
func (m Model) promptLabel() string {
	switch m.promptKind {
	case promptRenameChat:
		return "Rename chat:"
	case promptNewFile:
		return "New file in " + m.promptDir + ":"
	case promptNewDir:
		return "New directory in " + m.promptDir + ":"
	}
	return ""
}

// renderPicker renders the workspace root picker in place of the transcript.
func (m Model) renderPicker(height int) string {
	title := styles.Header.Render("Choose workspace root") + "  " +
		styles.Hint.Render("Enter select, Esc cancel")
	return styles.FocusedPanelBorder.
		Width(m.transcriptWidth() - 2).
		Height(height).
		Render(title + "\n\n" + m.picker.View())
}

// chatTitle returns the selected chat's title for the header.
func (m Model) chatTitle() string {
	if chat := m.state.CurrentChat(); chat != nil {
		return chat.Title
	}
	return "no chat"
}

// helpLine renders the short help from the key map.
func (m Model) helpLine() string {
	bindings := m.keys.ShortHelp()
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, b.Help().Key+" "+b.Help().Desc)
	}
	return strings.Join(parts, "  ")
}
