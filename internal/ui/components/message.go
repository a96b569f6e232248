// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/multichat-tui/internal/conversation"
	"github.com/jeranaias/multichat-tui/internal/ui/styles"
	"github.com/jeranaias/multichat-tui/internal/util"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageView renders conversation messages for the transcript viewport.
type MessageView struct {
	Theme          *styles.Theme
	Width          int
	ShowTimestamps bool

	markdown *glamour.TermRenderer
}

// NewMessageView creates a message renderer for the given width.
func NewMessageView(theme *styles.Theme, width int, showTimestamps bool) *MessageView {
	return &MessageView{
		Theme:          theme,
		Width:          width,
		ShowTimestamps: showTimestamps,
	}
}

// SetWidth updates the render width. The markdown renderer is rebuilt lazily
// since glamour bakes word wrap into the renderer.
func (v *MessageView) SetWidth(width int) {
	if width != v.Width {
		v.Width = width
		v.markdown = nil
	}
}

// Render renders a single message: role header, body, attachment tags.
func (v *MessageView) Render(msg conversation.Message) string {
	var sb strings.Builder

	sb.WriteString(v.header(msg))
	sb.WriteString("\n")

	switch msg.Role {
	case conversation.RoleUser:
		sb.WriteString(v.Theme.UserBubble.Render(msg.Content))
	case conversation.RoleSystem:
		sb.WriteString(v.Theme.SystemBubble.Render(msg.Content))
	default:
		sb.WriteString(v.Theme.AssistantBody.Render(v.renderAssistantBody(msg.Content)))
	}

	if len(msg.Attachments) > 0 {
		sb.WriteString("\n")
		var tags []string
		for _, att := range msg.Attachments {
			label := fmt.Sprintf("%s (%s)", att.Name, util.FormatBytes(att.SizeBytes))
			tags = append(tags, v.Theme.AttachmentTag.Render(label))
		}
		sb.WriteString(strings.Join(tags, " "))
	}

	return sb.String()
}

// RenderAll renders the whole conversation separated by blank lines.
func (v *MessageView) RenderAll(msgs []conversation.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, v.Render(msg))
	}
	return strings.Join(parts, "\n\n")
}

func (v *MessageView) header(msg conversation.Message) string {
	var label string
	switch msg.Role {
	case conversation.RoleUser:
		label = v.Theme.UserLabel.Render("You")
	case conversation.RoleSystem:
		label = v.Theme.SystemLabel.Render("System")
	default:
		label = v.Theme.AssistantLabel.Render("Assistant")
	}

	if v.ShowTimestamps {
		ts := v.Theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
		return label + " " + ts
	}
	return label
}

// renderAssistantBody renders assistant markdown. Prose goes through glamour;
// fenced code blocks get the chroma-backed renderer with line numbers.
func (v *MessageView) renderAssistantBody(content string) string {
	lines := strings.Split(content, "\n")

	var out []string
	var prose []string
	var codeLines []string
	var language string
	inCode := false

	flushProse := func() {
		if len(prose) == 0 {
			return
		}
		out = append(out, v.renderMarkdown(strings.Join(prose, "\n")))
		prose = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inCode {
				cb := NewCodeBlock(v.Theme, language, strings.Join(codeLines, "\n"))
				cb.SetMaxWidth(v.Width)
				out = append(out, cb.Render())
				codeLines = nil
				language = ""
				inCode = false
			} else {
				flushProse()
				language = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
				inCode = true
			}
			continue
		}
		if inCode {
			codeLines = append(codeLines, line)
		} else {
			prose = append(prose, line)
		}
	}

	// Unclosed fence: render what we have.
	if inCode && len(codeLines) > 0 {
		cb := NewCodeBlock(v.Theme, language, strings.Join(codeLines, "\n"))
		cb.SetMaxWidth(v.Width)
		out = append(out, cb.Render())
	}
	flushProse()

	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

func (v *MessageView) renderMarkdown(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if v.markdown == nil {
		wrap := v.Width - 6
		if wrap < 20 {
			wrap = 20
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return text
		}
		v.markdown = r
	}

	rendered, err := v.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}
