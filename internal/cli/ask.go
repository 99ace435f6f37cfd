// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Terminal chat mode for the cortex CLI.
//
// Handles "cortex ask", which talks to the chat backend without starting
// the full TUI.
//
// Examples:
//   cortex ask "Summarize my meeting notes"
//   echo "What does this error mean?" | cortex ask
//   cortex ask            (interactive, with input history)

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/cortex/internal/backend"
	"github.com/jeranaias/cortex/internal/chat"
	"github.com/jeranaias/cortex/internal/config"
	"github.com/jeranaias/cortex/internal/model"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// RunAsk handles the ask subcommand. With arguments it sends a single
// question and streams the answer to stdout. Without arguments it reads the
// question from stdin when piped, or starts an interactive session when
// stdin is a terminal.
func RunAsk(cfg *config.Config, args []string) error {
	client := backend.NewClient(cfg.Backend.URL)

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" && !IsTTY() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}

	if question != "" {
		return askOnce(cfg, client, question)
	}
	if !IsTTY() {
		return errors.New("no question given")
	}
	return askInteractive(cfg, client)
}

// askOnce sends one question in a fresh chat and streams the reply.
func askOnce(cfg *config.Config, client *backend.Client, question string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	created, err := client.CreateChat(ctx, model.DeriveTitle(question), cfg.Chat.DefaultPersonality)
	if err != nil {
		return err
	}
	return streamQuestion(ctx, cfg, client, created.ID, question, os.Stdout)
}

// askInteractive runs a REPL against a single backend chat, so follow-up
// questions share context.
func askInteractive(cfg *config.Config, client *backend.Client) error {
	input := newAskInput()
	defer input.Close()

	var chatID string

	for {
		line, err := input.ReadInput(renderPrompt("cortex> "))
		if err != nil {
			// Ctrl+C or Ctrl+D ends the session.
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		if chatID == "" {
			created, err := client.CreateChat(ctx, model.DeriveTitle(line), cfg.Chat.DefaultPersonality)
			if err != nil {
				cancel()
				printError(err)
				continue
			}
			chatID = created.ID
		}

		if err := streamQuestion(ctx, cfg, client, chatID, line, os.Stdout); err != nil {
			printError(err)
		}
		cancel()
	}
}

// streamQuestion sends question to chatID and writes tokens to w as they
// arrive. File references in the question are passed along so the backend
// can use them as context.
func streamQuestion(ctx context.Context, cfg *config.Config, client *backend.Client, chatID, question string, w io.Writer) error {
	req := &backend.SendRequest{
		Message:       question,
		Files:         chat.ExtractFileRefs(question),
		PersonalityID: cfg.Chat.DefaultPersonality,
	}

	_, err := client.StreamMessage(ctx, chatID, req, func(token string) {
		io.WriteString(w, token)
	})
	fmt.Fprintln(w)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, renderError("[Cancelled]"))
		return nil
	}
	return err
}

func renderPrompt(s string) string {
	if ColorEnabled() {
		return promptStyle.Render(s)
	}
	return s
}

func renderError(s string) string {
	if ColorEnabled() {
		return errorStyle.Render(s)
	}
	return s
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", renderError("[Error]"), err)
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// askInput provides line editing and persistent input history.
// USABILITY: Supports arrow keys for history navigation.
type askInput struct {
	line        *liner.State
	historyFile string
}

func newAskInput() *askInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	in := &askInput{
		line:        line,
		historyFile: filepath.Join(configDir, "ask_history"),
	}
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

// ReadInput reads one line with history navigation. Non-empty input is
// appended to history.
func (in *askInput) ReadInput(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

// Close persists history and restores the terminal.
func (in *askInput) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}
