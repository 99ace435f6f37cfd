// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cortex/internal/model"
	"github.com/jeranaias/cortex/internal/ui/styles"
)

const sidebarWidth = 32

var (
	userLabelStyle = lipgloss.NewStyle().
			Foreground(styles.UserBubbleFg).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(styles.AssistantBubbleFg).
				Bold(true)

	userMessageStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(styles.UserBubbleBorder).
				PaddingLeft(1)

	assistantMessageStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(styles.AssistantBubbleBorder).
				PaddingLeft(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// transcriptWidth returns the width available to the transcript column.
func (m Model) transcriptWidth() int {
	w := m.width
	if m.sidebarVisible {
		w -= sidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// renderTranscript renders the selected chat's history plus any streaming
// partial into one string for the viewport.
func (m Model) renderTranscript() string {
	chatID := m.currentChatID()
	if chatID == "" {
		return styles.Hint.Render("\n  No chat selected. Ctrl+N starts a new one.")
	}

	var b strings.Builder
	for _, msg := range m.state.Messages[chatID] {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if stream := m.state.Stream(chatID); stream.Streaming {
		b.WriteString(assistantLabelStyle.Render(model.RoleAssistant.DisplayName()))
		b.WriteString(" ")
		b.WriteString(m.spinner.View())
		b.WriteString("\n")
		if stream.Response != "" {
			b.WriteString(assistantMessageStyle.Render(stream.Response))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderMessage renders one settled message. Assistant messages go through
// the markdown renderer; user messages stay verbatim.
func (m Model) renderMessage(msg *model.Message) string {
	label := userLabelStyle
	body := userMessageStyle
	if msg.Role == model.RoleAssistant {
		label = assistantLabelStyle
		body = assistantMessageStyle
	}

	header := label.Render(msg.Role.DisplayName()) + " " +
		timestampStyle.Render(msg.Timestamp.Local().Format("15:04"))

	content := msg.Content
	if msg.Role == model.RoleAssistant && m.renderer != nil {
		if rendered, err := m.renderer.Render(msg.Content); err == nil {
			content = strings.TrimRight(rendered, "\n")
		}
	}

	return header + "\n" + body.Render(content) + "\n"
}
