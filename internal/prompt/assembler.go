// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt assembles provider-ready instruction text from the active
// operation mode, recent conversation history, user input, and attachment
// text. Assembly is a pure function: the same inputs always produce the
// same instruction.
package prompt

import (
	"fmt"
	"strings"

	"github.com/jeranaias/multichat-tui/internal/attachment"
	"github.com/jeranaias/multichat-tui/internal/conversation"
)

// =============================================================================
// OPERATION MODE
// =============================================================================

// Mode is a prompt-shaping policy. It affects only instruction assembly,
// never storage.
type Mode int

const (
	// ModeNormal passes user text through with only the context prefix.
	ModeNormal Mode = iota

	// ModeCode demands fenced code blocks only, no prose.
	ModeCode

	// ModeWebApp demands exactly one self-contained web bundle.
	ModeWebApp
)

// String returns the mode's display name.
func (m Mode) String() string {
	switch m {
	case ModeCode:
		return "code"
	case ModeWebApp:
		return "webapp"
	default:
		return "normal"
	}
}

// Toggle returns the mode that results from selecting target while m is
// active: selecting the already-active mode returns to normal, otherwise
// the target wins. Code and webapp are mutually exclusive with each other,
// not with normal.
func (m Mode) Toggle(target Mode) Mode {
	if m == target {
		return ModeNormal
	}
	return target
}

// =============================================================================
// INSTRUCTION TEMPLATES
// =============================================================================

const (
	// codeInstruction wraps user text in code-only mode. It overrides any
	// conflicting requests in the conversation history.
	codeInstruction = "Respond with fenced code blocks only. Do not include explanations, " +
		"commentary, or any prose outside code blocks, regardless of what the " +
		"conversation history requests."

	// webappInstruction wraps user text in webapp-only mode.
	webappInstruction = "Respond with exactly one self-contained web application: a single " +
		"fenced code block containing one HTML document with all markup, styles, " +
		"and scripts inlined. Output nothing else."

	// defaultDirective replaces an empty user message when attachments are
	// present.
	defaultDirective = "Please analyze the attached files."
)

// =============================================================================
// ASSEMBLER
// =============================================================================

// Request carries the inputs for one assembly.
type Request struct {
	// Mode is the active operation mode.
	Mode Mode

	// CustomInstruction, when non-empty, is prepended verbatim in normal
	// mode. It has no effect in code or webapp mode.
	CustomInstruction string

	// History is the full conversation log; the assembler selects the
	// context window itself.
	History []conversation.Message

	// Text is the new user input.
	Text string

	// Attachments are the pending attachments for this message.
	Attachments []attachment.Attachment
}

// Assembled is the result of prompt assembly.
type Assembled struct {
	// Instruction is the complete instruction text for the provider.
	Instruction string

	// NeedsVision is true when the outgoing request must carry image data:
	// at least one attachment is an image or has rendered pages.
	NeedsVision bool
}

// Assembler builds instruction text. The zero value uses the default
// history window.
type Assembler struct {
	// HistoryWindow is the number of recent non-system messages included
	// as context. Zero means conversation.DefaultHistoryWindow.
	HistoryWindow int
}

// Assemble builds the instruction for one outgoing message.
func (a Assembler) Assemble(req Request) Assembled {
	window := a.HistoryWindow
	if window <= 0 {
		window = conversation.DefaultHistoryWindow
	}

	text := strings.TrimSpace(req.Text)
	if text == "" && len(req.Attachments) > 0 {
		text = defaultDirective
	}

	var sections []string
	if ctx := renderContext(req.History, window); ctx != "" {
		sections = append(sections, ctx)
	}
	if docs := renderDocuments(req.Attachments); docs != "" {
		sections = append(sections, docs)
	}
	sections = append(sections, text)
	body := strings.Join(sections, "\n\n")

	var instruction string
	switch req.Mode {
	case ModeCode:
		instruction = codeInstruction + "\n\n" + body
	case ModeWebApp:
		instruction = webappInstruction + "\n\n" + body
	default:
		if custom := strings.TrimSpace(req.CustomInstruction); custom != "" {
			instruction = custom + "\n\n" + body
		} else {
			instruction = body
		}
	}

	return Assembled{
		Instruction: instruction,
		NeedsVision: needsVision(req.Attachments),
	}
}

// renderContext formats the last window non-system messages as labeled
// lines. Returns "" for an empty history.
func renderContext(history []conversation.Message, window int) string {
	var selected []conversation.Message
	for i := len(history) - 1; i >= 0 && len(selected) < window; i-- {
		if history[i].Role == conversation.RoleSystem {
			continue
		}
		selected = append(selected, history[i])
	}
	if len(selected) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Conversation so far:\n")
	for i := len(selected) - 1; i >= 0; i-- {
		msg := selected[i]
		label := "User"
		if msg.Role == conversation.RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(&sb, "%s: %s\n", label, msg.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderDocuments inlines text-bearing attachments with a per-file header.
// Image payloads are never inlined; they travel as separate visual parts.
func renderDocuments(atts []attachment.Attachment) string {
	var sb strings.Builder
	for _, att := range atts {
		if !att.IsTextBearing() {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "File: %s (%s, %d bytes)\n%s",
			att.Name, att.MIMEType, att.SizeBytes, att.Content)
	}
	return sb.String()
}

func needsVision(atts []attachment.Attachment) bool {
	for i := range atts {
		if atts[i].IsImage() || atts[i].HasPages() {
			return true
		}
	}
	return false
}
