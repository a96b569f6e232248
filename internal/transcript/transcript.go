// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript serializes a conversation to a human-readable
// markdown document and parses such documents back into messages.
//
// The format is one "## <Role>" heading per message followed by its
// content and an optional attachment listing. The loader is tolerant of
// role-label case and silently skips malformed or unrecognized sections.
package transcript

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/multichat-tui/internal/attachment"
	"github.com/jeranaias/multichat-tui/internal/conversation"
	"github.com/jeranaias/multichat-tui/internal/util"
)

// attachmentsHeading introduces the per-message attachment listing.
const attachmentsHeading = "Attachments:"

// headingRe matches one message heading. Case-insensitive on the role
// label. Headings inside fenced code blocks are not distinguished; a
// transcript whose message bodies embed their own "## User" style
// headings will split there as well.
var headingRe = regexp.MustCompile(`(?mi)^## (user|assistant|system)[ \t]*$`)

// attachmentLineRe matches one entry of the attachment listing.
var attachmentLineRe = regexp.MustCompile(`^- (.+) \((.+), (\d+) bytes\)$`)

// =============================================================================
// RENDERING
// =============================================================================

// Render serializes messages into transcript form.
func Render(msgs []conversation.Message) []byte {
	var sb strings.Builder

	sb.WriteString("# multichat conversation\n\n")
	fmt.Fprintf(&sb, "Exported: %s\n\n", time.Now().Format(time.RFC3339))

	for _, msg := range msgs {
		fmt.Fprintf(&sb, "## %s\n\n", titleRole(msg.Role))
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n")

		if len(msg.Attachments) > 0 {
			sb.WriteString("\n" + attachmentsHeading + "\n")
			for _, att := range msg.Attachments {
				fmt.Fprintf(&sb, "- %s (%s, %d bytes)\n", att.Name, att.MIMEType, att.SizeBytes)
			}
		}
		sb.WriteString("\n")
	}

	return []byte(sb.String())
}

// WriteFile renders messages and writes them atomically to path.
func WriteFile(path string, msgs []conversation.Message) error {
	return util.AtomicWriteFile(path, Render(msgs), 0644)
}

// DefaultFileName returns a timestamped transcript file name.
func DefaultFileName() string {
	return fmt.Sprintf("conversation_%s.md", time.Now().Format("20060102_150405"))
}

// =============================================================================
// PARSING
// =============================================================================

// Parse reads a transcript back into messages. Role and content are
// restored per heading; anything before the first heading and any section
// with an unrecognized label is skipped. Attachment listings are restored
// as metadata-only attachments.
func Parse(data []byte) []conversation.Message {
	text := string(data)
	locs := headingRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var msgs []conversation.Message
	for i, loc := range locs {
		role := strings.ToLower(text[loc[2]:loc[3]])

		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:end])

		content, atts := splitAttachmentListing(body)
		if content == "" && len(atts) == 0 {
			continue
		}

		msg := conversation.Message{
			ID:          uuid.New().String(),
			Role:        role,
			Content:     content,
			Timestamp:   time.Now(),
			Attachments: atts,
		}
		if role != conversation.RoleUser {
			msg.CodeBlocks = conversation.ExtractCodeBlocks(content)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// LoadFile reads and parses a transcript from disk.
func LoadFile(path string) ([]conversation.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return Parse(data), nil
}

// splitAttachmentListing separates a message body from its trailing
// attachment listing, if present.
func splitAttachmentListing(body string) (string, []attachment.Attachment) {
	idx := strings.LastIndex(body, "\n"+attachmentsHeading+"\n")
	if idx < 0 {
		if strings.HasPrefix(body, attachmentsHeading+"\n") {
			return "", parseAttachmentLines(body[len(attachmentsHeading)+1:])
		}
		return body, nil
	}

	listing := body[idx+len(attachmentsHeading)+2:]
	atts := parseAttachmentLines(listing)
	if atts == nil {
		// The heading was part of the content, not a listing.
		return body, nil
	}
	return strings.TrimSpace(body[:idx]), atts
}

func parseAttachmentLines(listing string) []attachment.Attachment {
	var atts []attachment.Attachment
	for _, line := range strings.Split(strings.TrimSpace(listing), "\n") {
		m := attachmentLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			// Any stray line means this is not a well-formed listing.
			return nil
		}
		var size int64
		fmt.Sscanf(m[3], "%d", &size)
		atts = append(atts, *attachment.New(m[1], m[2], size))
	}
	return atts
}

func titleRole(role string) string {
	switch role {
	case conversation.RoleAssistant:
		return "Assistant"
	case conversation.RoleSystem:
		return "System"
	default:
		return "User"
	}
}
