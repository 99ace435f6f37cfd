// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/cortex/internal/model"
)

// ErrNotFound is returned when a chat or personality does not exist.
var ErrNotFound = errors.New("not found")

// seedPersonalities are the personalities a fresh database offers.
var seedPersonalities = []*model.Personality{
	{ID: "assistant", Name: "Assistant", Description: "General-purpose helpful assistant"},
	{ID: "mentor", Name: "Mentor", Description: "Patient explainer that teaches as it answers"},
	{ID: "editor", Name: "Editor", Description: "Terse reviewer focused on clarity and correctness"},
}

// Store persists chats, messages, and personalities in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) the SQLite database at dsn.
// Use ":memory:" for an ephemeral database.
func OpenStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids table-lock errors under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	if err := s.seed(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			personality_id TEXT NOT NULL DEFAULT 'assistant',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			user_id TEXT NOT NULL,
			FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS personalities (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) seed() error {
	for _, p := range seedPersonalities {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO personalities (id, name, description) VALUES (?, ?, ?)`,
			p.ID, p.Name, p.Description)
		if err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Healthy verifies the database is reachable.
func (s *Store) Healthy(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListChats returns all chats, most recently updated first.
func (s *Store) ListChats(ctx context.Context) ([]*model.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, personality_id, created_at, updated_at
		 FROM chats ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []*model.Chat{}
	for rows.Next() {
		var chat model.Chat
		if err := rows.Scan(&chat.ID, &chat.Title, &chat.PersonalityID,
			&chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, &chat)
	}
	return chats, rows.Err()
}

// CreateChat inserts a new chat.
func (s *Store) CreateChat(ctx context.Context, chat *model.Chat) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, title, personality_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		chat.ID, chat.Title, chat.PersonalityID, chat.CreatedAt, chat.UpdatedAt)
	return err
}

// GetChat returns one chat by id.
func (s *Store) GetChat(ctx context.Context, chatID string) (*model.Chat, error) {
	var chat model.Chat
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, personality_id, created_at, updated_at
		 FROM chats WHERE id = ?`, chatID).
		Scan(&chat.ID, &chat.Title, &chat.PersonalityID, &chat.CreatedAt, &chat.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListMessages returns a chat's messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]*model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, role, content, timestamp, user_id
		 FROM messages WHERE chat_id = ? ORDER BY timestamp ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.Message{}
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content,
			&msg.Timestamp, &msg.UserID); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// AppendMessage stores a message and bumps the chat's updated_at.
func (s *Store) AppendMessage(ctx context.Context, msg *model.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, role, content, timestamp, user_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ChatID, msg.Role.String(), msg.Content, msg.Timestamp, msg.UserID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE chats SET updated_at = ? WHERE id = ?`, time.Now().UTC(), msg.ChatID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateChatTitle renames a chat.
func (s *Store) UpdateChatTitle(ctx context.Context, chatID, title string) error {
	return s.updateChat(ctx,
		`UPDATE chats SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UTC(), chatID)
}

// UpdateChatPersonality changes the personality a chat responds with.
func (s *Store) UpdateChatPersonality(ctx context.Context, chatID, personalityID string) error {
	return s.updateChat(ctx,
		`UPDATE chats SET personality_id = ?, updated_at = ? WHERE id = ?`,
		personalityID, time.Now().UTC(), chatID)
}

func (s *Store) updateChat(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChat removes a chat and, via the foreign key cascade, its messages.
func (s *Store) DeleteChat(ctx context.Context, chatID string) error {
	return s.updateChat(ctx, `DELETE FROM chats WHERE id = ?`, chatID)
}

// ListPersonalities returns all available personalities.
func (s *Store) ListPersonalities(ctx context.Context) ([]*model.Personality, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, '') FROM personalities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	personalities := []*model.Personality{}
	for rows.Next() {
		var p model.Personality
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		personalities = append(personalities, &p)
	}
	return personalities, rows.Err()
}
