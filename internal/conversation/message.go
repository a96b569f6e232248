// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation provides the append-only message log, fenced
// code-block extraction, and durable persistence for multichat.
package conversation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/multichat-tui/internal/attachment"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single conversation entry. Messages are never mutated after
// creation; the store's append order is the sole ordering used for context
// windows and transcripts.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// CodeBlocks are extracted from Content for assistant and system
	// messages.
	CodeBlocks []CodeBlock `json:"code_blocks,omitempty"`

	// Attachments are present only on user messages.
	Attachments []attachment.Attachment `json:"attachments,omitempty"`
}

// CodeBlock is one fenced code region extracted from message text.
type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// NewUserMessage creates a user message with the given attachments frozen in.
func NewUserMessage(content string, atts []attachment.Attachment) Message {
	return Message{
		ID:          uuid.New().String(),
		Role:        RoleUser,
		Content:     content,
		Timestamp:   time.Now(),
		Attachments: atts,
	}
}

// NewAssistantMessage creates an assistant message with code blocks extracted.
func NewAssistantMessage(content string) Message {
	return Message{
		ID:         uuid.New().String(),
		Role:       RoleAssistant,
		Content:    content,
		Timestamp:  time.Now(),
		CodeBlocks: ExtractCodeBlocks(content),
	}
}

// NewSystemMessage creates a system message with code blocks extracted.
func NewSystemMessage(content string) Message {
	return Message{
		ID:         uuid.New().String(),
		Role:       RoleSystem,
		Content:    content,
		Timestamp:  time.Now(),
		CodeBlocks: ExtractCodeBlocks(content),
	}
}

// =============================================================================
// CODE BLOCK EXTRACTION
// =============================================================================

// ExtractCodeBlocks scans text for fenced code regions. The language tag is
// optional and defaults to "text"; block bodies are trimmed of surrounding
// whitespace. An unclosed fence at the end of the text still yields a block.
func ExtractCodeBlocks(text string) []CodeBlock {
	var blocks []CodeBlock
	var codeLines []string
	var language string
	var inBlock bool

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inBlock {
				blocks = append(blocks, CodeBlock{
					Language: language,
					Code:     strings.TrimSpace(strings.Join(codeLines, "\n")),
				})
				codeLines = nil
				inBlock = false
			} else {
				language = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
				if language == "" {
					language = "text"
				}
				inBlock = true
			}
			continue
		}
		if inBlock {
			codeLines = append(codeLines, line)
		}
	}

	if inBlock && len(codeLines) > 0 {
		blocks = append(blocks, CodeBlock{
			Language: language,
			Code:     strings.TrimSpace(strings.Join(codeLines, "\n")),
		})
	}

	return blocks
}
