// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - asynchronous commands the update loop dispatches, and the
// messages they resolve to. All backend and filesystem work happens here,
// off the render loop.

package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cortex/internal/chat"
	"github.com/jeranaias/cortex/internal/fs"
	"github.com/jeranaias/cortex/internal/model"
)

// actionTimeout bounds every non-streaming backend call made from the UI.
const actionTimeout = 30 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// storeChangedMsg signals that the chat store has a new state snapshot.
type storeChangedMsg struct{}

// actionDoneMsg resolves a fire-and-forget controller action. The store
// already carries any user-visible error; Err is kept for flow decisions.
type actionDoneMsg struct{ Err error }

// sendFinishedMsg resolves a SendMessage call.
type sendFinishedMsg struct{ Err error }

// personalitiesMsg resolves the personality list fetch.
type personalitiesMsg struct {
	Personalities []*model.Personality
	Err           error
}

// treeMsg resolves a workspace tree scan.
type treeMsg struct {
	Root  string
	Nodes []*fs.Node
	Err   error
}

// fsChangedMsg signals that something under the workspace root changed.
type fsChangedMsg struct{}

// previewMsg resolves a file preview load.
type previewMsg struct {
	Path    string
	Content string
	Err     error
}

// rootChangedMsg resolves a workspace root switch. Watcher is nil when the
// new root could not be watched; the tree then refreshes only on demand.
type rootChangedMsg struct {
	Root    string
	Watcher *fs.Watcher
}

// fsOpDoneMsg resolves a sidebar file mutation (create or delete).
type fsOpDoneMsg struct{ Err error }

// =============================================================================
// COMMANDS
// =============================================================================

// waitForStoreChange blocks on the store's coalesced change channel and
// converts the wakeup into a message. The update loop re-issues it after
// every storeChangedMsg, forming the subscription.
func waitForStoreChange(store *chat.Store) tea.Cmd {
	return func() tea.Msg {
		<-store.Changed()
		return storeChangedMsg{}
	}
}

func loadChatsCmd(controller *chat.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{Err: controller.LoadChats(ctx)}
	}
}

func createChatCmd(controller *chat.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		_, err := controller.CreateChat(ctx, "New chat", "")
		return actionDoneMsg{Err: err}
	}
}

func selectChatCmd(controller *chat.Controller, chatID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{Err: controller.SelectChat(ctx, chatID)}
	}
}

func deleteChatCmd(controller *chat.Controller, chatID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{Err: controller.DeleteChat(ctx, chatID)}
	}
}

func renameChatCmd(controller *chat.Controller, chatID, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{Err: controller.RenameChat(ctx, chatID, title)}
	}
}

func setPersonalityCmd(controller *chat.Controller, chatID, personalityID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{Err: controller.SetChatPersonality(ctx, chatID, personalityID)}
	}
}

// sendMessageCmd drives the full send flow. No timeout here: the stream
// lasts as long as the response does, and cancellation goes through the
// controller's CancelStream.
func sendMessageCmd(controller *chat.Controller, chatID, text string) tea.Cmd {
	return func() tea.Msg {
		return sendFinishedMsg{Err: controller.SendMessage(context.Background(), chatID, text)}
	}
}

func loadPersonalitiesCmd(be chat.Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		personalities, err := be.ListPersonalities(ctx)
		return personalitiesMsg{Personalities: personalities, Err: err}
	}
}

func scanTreeCmd(bridge fs.Bridge, root string) tea.Cmd {
	return func() tea.Msg {
		nodes, err := fs.ScanTree(bridge, root)
		return treeMsg{Root: root, Nodes: nodes, Err: err}
	}
}

// waitForFsEvent blocks on the watcher's coalesced event channel. Re-issued
// after every fsChangedMsg, like the store subscription.
func waitForFsEvent(w *fs.Watcher) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-w.Events(); !ok {
			return nil
		}
		return fsChangedMsg{}
	}
}

func loadPreviewCmd(bridge fs.Bridge, path string) tea.Cmd {
	return func() tea.Msg {
		content, err := bridge.ReadFile(path)
		return previewMsg{Path: path, Content: content, Err: err}
	}
}

// createFileCmd creates an empty file; the tree rescan follows the result.
func createFileCmd(bridge fs.Bridge, path string) tea.Cmd {
	return func() tea.Msg {
		return fsOpDoneMsg{Err: bridge.WriteFile(path, "")}
	}
}

func createDirCmd(bridge fs.Bridge, path string) tea.Cmd {
	return func() tea.Msg {
		return fsOpDoneMsg{Err: bridge.CreateDirectory(path)}
	}
}

func deleteEntryCmd(bridge fs.Bridge, path string) tea.Cmd {
	return func() tea.Msg {
		return fsOpDoneMsg{Err: bridge.Delete(path)}
	}
}

// changeRootCmd tears down the old watcher and starts one on the new root.
func changeRootCmd(old *fs.Watcher, root string) tea.Cmd {
	return func() tea.Msg {
		if old != nil {
			old.Close()
		}
		w, err := fs.WatchTree(root)
		if err != nil {
			w = nil
		}
		return rootChangedMsg{Root: root, Watcher: w}
	}
}
