// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"path/filepath"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cortex/internal/chat"
	"github.com/jeranaias/cortex/internal/config"
	"github.com/jeranaias/cortex/internal/fs"
	"github.com/jeranaias/cortex/internal/model"
	"github.com/jeranaias/cortex/internal/ui/styles"
)

// focusArea identifies which pane receives keyboard input.
type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// promptKind identifies what an open text prompt is asking for.
type promptKind int

const (
	promptNone promptKind = iota
	promptRenameChat
	promptNewFile
	promptNewDir
)

// sidebarTab identifies which list the sidebar shows.
type sidebarTab int

const (
	tabChats sidebarTab = iota
	tabFiles
)

// Model is the root Bubble Tea model for the cortex TUI.
type Model struct {
	controller *chat.Controller
	store      *chat.Store
	backend    chat.Backend
	state      chat.State

	cfg      *config.Config
	appState *config.State

	bridge  fs.Bridge
	rootDir string
	tree    []*fs.Node
	flat    []*fs.Node
	watcher *fs.Watcher
	treeErr error

	keys     KeyMap
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	focus          focusArea
	tab            sidebarTab
	sidebarVisible bool
	chatCursor     int
	fileCursor     int

	preview    *preview
	previewing bool

	picker  filepicker.Model
	picking bool

	prompt     textinput.Model
	promptKind promptKind
	promptChat string // chat being renamed
	promptDir  string // directory receiving a new entry

	personalities []*model.Personality

	width  int
	height int
	ready  bool
}

// New builds the root model. The watcher may be nil when the workspace root
// could not be watched; the tree then refreshes only on demand.
func New(controller *chat.Controller, be chat.Backend, bridge fs.Bridge, watcher *fs.Watcher, cfg *config.Config, appState *config.State, rootDir string) Model {
	input := textarea.New()
	input.Placeholder = "Message (Enter to send, @path to attach a file)"
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Purple)

	return Model{
		controller:     controller,
		store:          controller.Store(),
		backend:        be,
		state:          controller.Store().State(),
		cfg:            cfg,
		appState:       appState,
		bridge:         bridge,
		rootDir:        rootDir,
		watcher:        watcher,
		keys:           DefaultKeyMap(),
		input:          input,
		spinner:        sp,
		focus:          focusInput,
		tab:            tabChats,
		sidebarVisible: cfg.UI.ShowSidebar,
	}
}

// Init starts the subscriptions and initial loads.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForStoreChange(m.store),
		loadChatsCmd(m.controller),
		loadPersonalitiesCmd(m.backend),
		scanTreeCmd(m.bridge, m.rootDir),
		m.spinner.Tick,
		textarea.Blink,
	}
	if m.watcher != nil {
		cmds = append(cmds, waitForFsEvent(m.watcher))
	}
	return tea.Batch(cmds...)
}

// newRootPicker builds a directory-only picker seeded at the current root.
func (m Model) newRootPicker() filepicker.Model {
	fp := filepicker.New()
	fp.CurrentDirectory = m.rootDir
	fp.DirAllowed = true
	fp.FileAllowed = false
	fp.AutoHeight = false
	fp.Height = m.viewport.Height - 2
	return fp
}

// currentChatID returns the selected chat id, or "" when none is selected.
func (m Model) currentChatID() string {
	return m.state.CurrentChatID
}

// streaming reports whether the selected chat has a response in flight.
func (m Model) streaming() bool {
	return m.state.Stream(m.currentChatID()).Streaming
}

// selectedChat returns the chat under the sidebar cursor, or nil.
func (m Model) selectedChat() *model.Chat {
	if m.chatCursor < 0 || m.chatCursor >= len(m.state.Chats) {
		return nil
	}
	return m.state.Chats[m.chatCursor]
}

// selectedNode returns the tree node under the sidebar cursor, or nil.
func (m Model) selectedNode() *fs.Node {
	if m.fileCursor < 0 || m.fileCursor >= len(m.flat) {
		return nil
	}
	return m.flat[m.fileCursor]
}

// openPrompt focuses a one-line text prompt over the status bar.
func (m *Model) openPrompt(kind promptKind, placeholder, initial string) {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	ti.SetValue(initial)
	ti.CursorEnd()
	ti.Focus()
	m.prompt = ti
	m.promptKind = kind
	m.input.Blur()
}

// closePrompt dismisses the prompt and hands focus back.
func (m *Model) closePrompt() {
	m.promptKind = promptNone
	m.promptChat = ""
	m.promptDir = ""
	if m.focus == focusInput {
		m.input.Focus()
	}
}

// targetDir returns the directory a new sidebar entry should land in: the
// selected directory, the selected file's parent, or the workspace root.
func (m Model) targetDir() string {
	node := m.selectedNode()
	if node == nil {
		return m.rootDir
	}
	if node.Entry.IsDirectory {
		return node.Entry.Path
	}
	return filepath.Dir(node.Entry.Path)
}

// nextPersonality returns the personality after current in the fetched
// list, wrapping around. Callers guarantee the list is non-empty.
func (m Model) nextPersonality(current string) string {
	for i, p := range m.personalities {
		if p.ID == current {
			return m.personalities[(i+1)%len(m.personalities)].ID
		}
	}
	return m.personalities[0].ID
}

// personalityName resolves a personality id to its display name, falling
// back to the id itself while the list is still loading.
func (m Model) personalityName(id string) string {
	if id == "" {
		id = model.DefaultPersonalityID
	}
	for _, p := range m.personalities {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}

// clampCursors keeps both sidebar cursors inside their lists after the
// underlying data changes.
func (m *Model) clampCursors() {
	if n := len(m.state.Chats); m.chatCursor >= n {
		m.chatCursor = n - 1
	}
	if m.chatCursor < 0 {
		m.chatCursor = 0
	}
	if n := len(m.flat); m.fileCursor >= n {
		m.fileCursor = n - 1
	}
	if m.fileCursor < 0 {
		m.fileCursor = 0
	}
}
