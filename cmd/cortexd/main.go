// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command cortexd runs the cortex development backend: a local chat server
// speaking the production wire protocol, backed by SQLite and a canned
// responder. Point the cortex client at it with CORTEX_BACKEND_URL.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jeranaias/cortex/internal/server"
)

func main() {
	addr := flag.String("addr", ":8002", "listen address")
	dbPath := flag.String("db", defaultDBPath(), "SQLite database path (\":memory:\" for ephemeral)")
	flag.Parse()

	if *dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
			log.Fatalf("failed to create database directory: %v", err)
		}
	}

	store, err := server.OpenStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	srv := server.New(store)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		srv.Close()
	}()

	log.Printf("cortexd listening on %s (db: %s)", *addr, *dbPath)
	if err := srv.Start(*addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cortexd.db"
	}
	return filepath.Join(home, ".cortex", "cortexd.db")
}
