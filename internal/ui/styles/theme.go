// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// Shared styles used across the TUI. Component-specific styles live next to
// their components; these are the ones everything agrees on.
var (
	// Header is the one-line application header.
	Header = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	// StatusBar is the bottom status line.
	StatusBar = lipgloss.NewStyle().
			Foreground(TextSecondary)

	// ErrorText renders inline error messages.
	ErrorText = lipgloss.NewStyle().
			Foreground(Rose)

	// Hint renders keybinding hints and other subtle guidance.
	Hint = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Selected highlights the focused row in lists.
	Selected = lipgloss.NewStyle().
			Foreground(TextInverse).
			Background(Purple).
			Bold(true)

	// PanelBorder frames the sidebar and preview panels.
	PanelBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Overlay)

	// FocusedPanelBorder frames the panel that has keyboard focus.
	FocusedPanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Purple)
)
