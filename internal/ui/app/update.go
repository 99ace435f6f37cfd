// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/cortex/internal/config"
	"github.com/jeranaias/cortex/internal/fs"
)

// Update is the Bubble Tea update loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case storeChangedMsg:
		wasAtBottom := m.viewport.AtBottom()
		m.state = m.store.State()
		m.clampCursors()
		m.refreshTranscript()
		if wasAtBottom {
			m.viewport.GotoBottom()
		}
		return m, waitForStoreChange(m.store)

	case actionDoneMsg, sendFinishedMsg:
		// Failures already landed in the store's error slot; nothing to do.
		return m, nil

	case personalitiesMsg:
		if msg.Err == nil {
			m.personalities = msg.Personalities
		}
		return m, nil

	case treeMsg:
		m.treeErr = msg.Err
		if msg.Err == nil {
			carryExpansion(m.tree, msg.Nodes)
			m.tree = msg.Nodes
			m.flat = fs.Flatten(m.tree)
			m.clampCursors()
		}
		return m, nil

	case fsChangedMsg:
		return m, tea.Batch(
			scanTreeCmd(m.bridge, m.rootDir),
			waitForFsEvent(m.watcher),
		)

	case previewMsg:
		if msg.Err == nil {
			m.preview = newPreview(msg.Path, msg.Content, m.transcriptWidth())
			m.previewing = true
		}
		return m, nil

	case fsOpDoneMsg:
		if msg.Err != nil {
			m.treeErr = msg.Err
			return m, nil
		}
		// The watcher will also fire; the rescan here makes the change
		// visible without waiting out the debounce.
		m.treeErr = nil
		return m, scanTreeCmd(m.bridge, m.rootDir)

	case rootChangedMsg:
		m.rootDir = msg.Root
		m.watcher = msg.Watcher
		m.tree = nil
		m.flat = nil
		m.fileCursor = 0
		m.tab = tabFiles
		cmds := []tea.Cmd{scanTreeCmd(m.bridge, m.rootDir)}
		if m.watcher != nil {
			cmds = append(cmds, waitForFsEvent(m.watcher))
		}
		return m, tea.Batch(cmds...)
	}

	return m.updateFocused(msg)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	transcriptHeight := m.height - m.input.Height() - 4
	if transcriptHeight < 3 {
		transcriptHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(m.transcriptWidth(), transcriptHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.transcriptWidth()
		m.viewport.Height = transcriptHeight
	}
	m.input.SetWidth(m.transcriptWidth())
	if m.picking {
		m.picker.Height = transcriptHeight - 2
	}

	// Word wrap tracks the transcript, not the terminal.
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(m.transcriptWidth()-2),
	)
	if err == nil {
		m.renderer = renderer
	}

	m.refreshTranscript()
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The preview overlay swallows all keys until dismissed.
	if m.previewing {
		switch {
		case key.Matches(msg, m.keys.ClosePreview), key.Matches(msg, m.keys.Quit):
			m.previewing = false
			return m, nil
		case key.Matches(msg, m.keys.Up):
			m.preview.ScrollUp()
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.preview.ScrollDown()
			return m, nil
		}
		return m, nil
	}

	// So does the root picker, except for quit.
	if m.picking {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.saveSessionState()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.picking = false
			return m, nil
		}
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		if didSelect, path := m.picker.DidSelectFile(msg); didSelect {
			m.picking = false
			return m, changeRootCmd(m.watcher, path)
		}
		return m, cmd
	}

	// An open text prompt owns the keyboard until committed or dismissed.
	if m.promptKind != promptNone {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.saveSessionState()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.closePrompt()
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			return m.submitPrompt()
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.saveSessionState()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.streaming() {
			m.controller.CancelStream(m.currentChatID())
			return m, nil
		}

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.sidebarVisible = !m.sidebarVisible
		if !m.sidebarVisible && m.focus == focusSidebar {
			m.focus = focusInput
			m.input.Focus()
		}
		m.resizeAfterLayoutChange()
		return m, nil

	case key.Matches(msg, m.keys.CycleFocus):
		if m.focus == focusInput && m.sidebarVisible {
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.SwitchTab):
		if m.tab == tabChats {
			m.tab = tabFiles
		} else {
			m.tab = tabChats
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m, createChatCmd(m.controller)

	case key.Matches(msg, m.keys.PickRoot):
		m.picker = m.newRootPicker()
		m.picking = true
		return m, m.picker.Init()

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(
			loadChatsCmd(m.controller),
			scanTreeCmd(m.bridge, m.rootDir),
		)
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.tab == tabChats {
			m.chatCursor--
		} else {
			m.fileCursor--
		}
		m.clampCursors()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.tab == tabChats {
			m.chatCursor++
		} else {
			m.fileCursor++
		}
		m.clampCursors()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.tab == tabChats {
			if chat := m.selectedChat(); chat != nil {
				return m, selectChatCmd(m.controller, chat.ID)
			}
			return m, nil
		}
		node := m.selectedNode()
		if node == nil {
			return m, nil
		}
		if node.Entry.IsDirectory {
			node.Expanded = !node.Expanded
			m.flat = fs.Flatten(m.tree)
			m.clampCursors()
			return m, nil
		}
		return m, loadPreviewCmd(m.bridge, node.Entry.Path)

	case key.Matches(msg, m.keys.Delete):
		if m.tab == tabChats {
			if chat := m.selectedChat(); chat != nil {
				return m, deleteChatCmd(m.controller, chat.ID)
			}
			return m, nil
		}
		if node := m.selectedNode(); node != nil {
			return m, deleteEntryCmd(m.bridge, node.Entry.Path)
		}
		return m, nil

	case key.Matches(msg, m.keys.Rename):
		if m.tab == tabChats {
			if chat := m.selectedChat(); chat != nil {
				m.openPrompt(promptRenameChat, "chat title", chat.Title)
				m.promptChat = chat.ID
				return m, textinput.Blink
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Personality):
		if m.tab == tabChats && len(m.personalities) > 0 {
			if chat := m.selectedChat(); chat != nil {
				return m, setPersonalityCmd(m.controller, chat.ID,
					m.nextPersonality(chat.PersonalityID))
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.NewFile):
		if m.tab == tabFiles {
			m.openPrompt(promptNewFile, "file name", "")
			m.promptDir = m.targetDir()
			return m, textinput.Blink
		}
		return m, nil

	case key.Matches(msg, m.keys.NewDir):
		if m.tab == tabFiles {
			m.openPrompt(promptNewDir, "directory name", "")
			m.promptDir = m.targetDir()
			return m, textinput.Blink
		}
		return m, nil
	}
	return m, nil
}

// submitPrompt dispatches the committed prompt value to the matching
// action. A blank value is treated like a cancel.
func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.prompt.Value())
	kind, chatID, dir := m.promptKind, m.promptChat, m.promptDir
	m.closePrompt()
	if value == "" {
		return m, nil
	}
	switch kind {
	case promptRenameChat:
		return m, renameChatCmd(m.controller, chatID, value)
	case promptNewFile:
		return m, createFileCmd(m.bridge, filepath.Join(dir, value))
	case promptNewDir:
		return m, createDirCmd(m.bridge, filepath.Join(dir, value))
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		// A send to a streaming chat would be rejected anyway; keep the
		// draft in the input instead of bouncing it off the controller.
		if m.streaming() {
			return m, nil
		}
		text := m.input.Value()
		m.input.Reset()
		return m, sendMessageCmd(m.controller, m.currentChatID(), text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	// The picker drives itself with internal messages (directory reads).
	if m.picking {
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	// Same for the prompt's cursor blink.
	if m.promptKind != promptNone {
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	if m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) resizeAfterLayoutChange() {
	if !m.ready {
		return
	}
	m.viewport.Width = m.transcriptWidth()
	m.input.SetWidth(m.transcriptWidth())
	m.refreshTranscript()
}

// refreshTranscript re-renders the selected chat into the viewport.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
}

// saveSessionState persists the workspace root for the next session.
// Best effort: a failure here must not block quitting.
func (m Model) saveSessionState() {
	if m.appState == nil {
		return
	}
	m.appState.LastRootDir = m.rootDir
	_ = config.SaveState(m.appState)
}

// carryExpansion copies expansion state from the old tree onto a fresh scan,
// matching nodes by path, so a background rescan does not collapse the view.
func carryExpansion(old, fresh []*fs.Node) {
	expanded := make(map[string]bool)
	var walk func(ns []*fs.Node)
	walk = func(ns []*fs.Node) {
		for _, n := range ns {
			if n.Expanded {
				expanded[n.Entry.Path] = true
			}
			walk(n.Children)
		}
	}
	walk(old)

	var apply func(ns []*fs.Node)
	apply = func(ns []*fs.Node) {
		for _, n := range ns {
			if expanded[n.Entry.Path] {
				n.Expanded = true
			}
			apply(n.Children)
		}
	}
	apply(fresh)
}
