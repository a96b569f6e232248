// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/multichat-tui/internal/attachment"
)

// DefaultHistoryWindow is the number of recent non-system messages
// supplied as conversation context when assembling a prompt.
const DefaultHistoryWindow = 6

// schema holds the message log. The seq column preserves append order
// across restarts; id stays the message's own identifier.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	timestamp   TEXT NOT NULL,
	code_blocks TEXT NOT NULL DEFAULT '[]',
	attachments TEXT NOT NULL DEFAULT '[]'
);
`

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// Store is the append-only ordered message log. Messages are held in
// memory for display and mirrored to SQLite for durability; the log
// survives restarts and is keyed by a single fixed table.
type Store struct {
	mu       sync.Mutex
	messages []Message
	db       *sql.DB
}

// NewStore creates an in-memory store with no persistence. Used by tests
// and the one-shot CLI path.
func NewStore() *Store {
	return &Store{}
}

// Open creates or opens a persistent store at the given SQLite path and
// loads any previously saved messages in append order.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// load reads the persisted log back into memory. Timestamps are stored as
// RFC 3339 strings and revived as time values here.
func (s *Store) load() error {
	rows, err := s.db.Query(
		`SELECT id, role, content, timestamp, code_blocks, attachments FROM messages ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg Message
		var ts, blocksJSON, attsJSON string
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &ts, &blocksJSON, &attsJSON); err != nil {
			return fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return fmt.Errorf("failed to parse timestamp %q: %w", ts, err)
		}
		if err := json.Unmarshal([]byte(blocksJSON), &msg.CodeBlocks); err != nil {
			return fmt.Errorf("failed to decode code blocks: %w", err)
		}
		if err := json.Unmarshal([]byte(attsJSON), &msg.Attachments); err != nil {
			return fmt.Errorf("failed to decode attachments: %w", err)
		}

		s.messages = append(s.messages, msg)
	}
	return rows.Err()
}

// Append adds a message to the end of the log and persists it.
func (s *Store) Append(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		blocksJSON, err := json.Marshal(blocksOrEmpty(msg.CodeBlocks))
		if err != nil {
			return fmt.Errorf("failed to encode code blocks: %w", err)
		}
		attsJSON, err := json.Marshal(attachmentsOrEmpty(msg.Attachments))
		if err != nil {
			return fmt.Errorf("failed to encode attachments: %w", err)
		}

		_, err = s.db.Exec(
			`INSERT INTO messages (id, role, content, timestamp, code_blocks, attachments) VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.Role, msg.Content, msg.Timestamp.Format(time.RFC3339Nano),
			string(blocksJSON), string(attsJSON))
		if err != nil {
			return fmt.Errorf("failed to persist message: %w", err)
		}
	}

	s.messages = append(s.messages, msg)
	return nil
}

// Messages returns a copy of the full log in append order.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the log.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Last returns the most recent message, if any.
func (s *Store) Last() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Recent returns up to n of the most recent messages, excluding
// system-authored entries, in chronological order.
func (s *Store) Recent(n int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Message
	for i := len(s.messages) - 1; i >= 0 && len(out) < n; i-- {
		if s.messages[i].Role == RoleSystem {
			continue
		}
		out = append(out, s.messages[i])
	}

	// Reverse back into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Clear removes every message from the log and the database.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if _, err := s.db.Exec(`DELETE FROM messages`); err != nil {
			return fmt.Errorf("failed to clear messages: %w", err)
		}
	}
	s.messages = nil
	return nil
}

func blocksOrEmpty(blocks []CodeBlock) []CodeBlock {
	if blocks == nil {
		return []CodeBlock{}
	}
	return blocks
}

func attachmentsOrEmpty(atts []attachment.Attachment) []attachment.Attachment {
	if atts == nil {
		return []attachment.Attachment{}
	}
	return atts
}
