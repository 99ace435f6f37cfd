// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// keys.go - keyboard bindings and shortcuts.

package app

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keyboard bindings for the application.
type KeyMap struct {
	Up            key.Binding
	Down          key.Binding
	Submit        key.Binding
	Cancel        key.Binding
	NewChat       key.Binding
	Delete        key.Binding
	Rename        key.Binding
	Personality   key.Binding
	NewFile       key.Binding
	NewDir        key.Binding
	ToggleSidebar key.Binding
	CycleFocus    key.Binding
	SwitchTab     key.Binding
	PickRoot      key.Binding
	Refresh       key.Binding
	ClosePreview  key.Binding
	Quit          key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "move down"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send / open"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel streaming"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "delete"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename chat"),
		),
		Personality: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "personality"),
		),
		NewFile: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "new file"),
		),
		NewDir: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "new directory"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "toggle sidebar"),
		),
		CycleFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "switch focus"),
		),
		SwitchTab: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "chats/files"),
		),
		PickRoot: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "change root"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "refresh"),
		),
		ClosePreview: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "close preview"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("C-q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NewChat, k.CycleFocus, k.ToggleSidebar, k.Quit}
}
