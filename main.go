// cortex - A terminal second brain: chat with your notes and files.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cortex/internal/backend"
	"github.com/jeranaias/cortex/internal/chat"
	"github.com/jeranaias/cortex/internal/cli"
	"github.com/jeranaias/cortex/internal/config"
	"github.com/jeranaias/cortex/internal/fs"
	"github.com/jeranaias/cortex/internal/ui/app"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

const usage = `cortex - chat with your second brain

Usage:
  cortex              start the TUI
  cortex ask [text]   ask without the TUI (reads stdin when piped)
  cortex version      print version information

Environment:
  CORTEX_BACKEND_URL  chat backend URL (default http://localhost:8002)
`

func main() {
	args := os.Args[1:]

	if len(args) > 0 {
		switch args[0] {
		case "ask":
			cfg := mustLoadConfig()
			if err := cli.RunAsk(cfg, args[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version", "--version", "-v":
			fmt.Printf("cortex %s (%s)\n", Version, GitCommit)
			return
		case "help", "--help", "-h":
			fmt.Print(usage)
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", args[0], usage)
			os.Exit(1)
		}
	}

	runTUI()
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runTUI() {
	cfg := mustLoadConfig()

	state, err := config.LoadState()
	if err != nil {
		// A corrupt state file should not keep the app from starting.
		fmt.Fprintf(os.Stderr, "Warning: %v (ignoring saved state)\n", err)
		state = &config.State{}
	}
	rootDir := config.ResolveRoot(cfg, state)

	client := backend.NewClient(cfg.Backend.URL)
	store := chat.NewStore()
	controller := chat.NewController(store, client)

	bridge := fs.NewLocal()
	watcher, err := fs.WatchTree(rootDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: not watching %s: %v\n", rootDir, err)
		watcher = nil
	} else {
		defer watcher.Close()
	}

	m := app.New(controller, client, bridge, watcher, cfg, state, rootDir)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
