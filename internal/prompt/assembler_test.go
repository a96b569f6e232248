// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jeranaias/multichat-tui/internal/attachment"
	"github.com/jeranaias/multichat-tui/internal/conversation"
)

func textAttachment(name, content string) attachment.Attachment {
	att := attachment.New(name, "text/plain", int64(len(content)))
	att.Content = content
	return *att
}

func imageAttachment(name string) attachment.Attachment {
	att := attachment.New(name, "image/png", 128)
	att.Content = "aW1hZ2U="
	return *att
}

func pdfAttachment(name string) attachment.Attachment {
	att := attachment.New(name, "application/pdf", 256)
	att.Content = "--- Page 1 ---\npdf text"
	att.Pages = []attachment.DocumentPage{{PageNumber: 1, Image: "cGFnZQ==", Text: "pdf text"}}
	return *att
}

// =============================================================================
// MODE BEHAVIOR
// =============================================================================

func TestAssemble_NormalPassthrough(t *testing.T) {
	// Empty history, no attachments, no custom instruction: the assembled
	// instruction is exactly the raw user text.
	got := Assembler{}.Assemble(Request{Mode: ModeNormal, Text: "explain recursion"})

	if got.Instruction != "explain recursion" {
		t.Errorf("Instruction = %q, want raw passthrough", got.Instruction)
	}
	if got.NeedsVision {
		t.Error("NeedsVision should be false with no attachments")
	}
}

func TestAssemble_CodeMode(t *testing.T) {
	got := Assembler{}.Assemble(Request{Mode: ModeCode, Text: "sort a slice"})

	if !strings.HasPrefix(got.Instruction, codeInstruction) {
		t.Errorf("code mode must start with its fixed template, got %q", got.Instruction)
	}
	if !strings.Contains(got.Instruction, "sort a slice") {
		t.Error("user text missing from instruction")
	}
}

func TestAssemble_CodeModeIgnoresCustomInstruction(t *testing.T) {
	got := Assembler{}.Assemble(Request{
		Mode:              ModeCode,
		CustomInstruction: "always answer in French",
		Text:              "sort a slice",
	})
	if strings.Contains(got.Instruction, "French") {
		t.Error("custom instruction must not leak into code mode")
	}
}

func TestAssemble_WebAppMode(t *testing.T) {
	got := Assembler{}.Assemble(Request{Mode: ModeWebApp, Text: "a todo list"})

	if !strings.HasPrefix(got.Instruction, webappInstruction) {
		t.Errorf("webapp mode must start with its fixed template, got %q", got.Instruction)
	}
	if !strings.Contains(got.Instruction, "exactly one self-contained") {
		t.Error("webapp template must require exactly one bundled output")
	}
}

func TestAssemble_CustomInstructionPrepended(t *testing.T) {
	got := Assembler{}.Assemble(Request{
		Mode:              ModeNormal,
		CustomInstruction: "You are a pirate.",
		Text:              "hello",
	})
	if !strings.HasPrefix(got.Instruction, "You are a pirate.") {
		t.Errorf("custom instruction must come first, got %q", got.Instruction)
	}
	if !strings.HasSuffix(got.Instruction, "hello") {
		t.Errorf("user text must come last, got %q", got.Instruction)
	}
}

// =============================================================================
// CONTEXT WINDOW
// =============================================================================

func TestAssemble_HistoryWindow(t *testing.T) {
	var history []conversation.Message
	for i := 0; i < 10; i++ {
		history = append(history, conversation.NewUserMessage(fmt.Sprintf("question %d", i), nil))
		history = append(history, conversation.NewAssistantMessage(fmt.Sprintf("answer %d", i)))
	}

	got := Assembler{}.Assemble(Request{Mode: ModeNormal, History: history, Text: "next"})

	// Only the last 6 messages make the window: question/answer 7..9.
	for i := 7; i <= 9; i++ {
		if !strings.Contains(got.Instruction, fmt.Sprintf("answer %d", i)) {
			t.Errorf("window missing answer %d", i)
		}
	}
	if strings.Contains(got.Instruction, "answer 6") {
		t.Error("window should not include messages beyond the last 6")
	}
	if !strings.Contains(got.Instruction, "Conversation so far:") {
		t.Error("history should be introduced by the context prefix")
	}
}

func TestAssemble_HistoryExcludesSystem(t *testing.T) {
	history := []conversation.Message{
		conversation.NewUserMessage("real question", nil),
		conversation.NewSystemMessage("switched to code mode"),
	}

	got := Assembler{}.Assemble(Request{Mode: ModeNormal, History: history, Text: "next"})
	if strings.Contains(got.Instruction, "switched to code mode") {
		t.Error("system messages must not appear in context")
	}
	if !strings.Contains(got.Instruction, "real question") {
		t.Error("user history missing from context")
	}
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

func TestAssemble_InlinesTextAttachments(t *testing.T) {
	att := textAttachment("notes.txt", "remember the milk")
	got := Assembler{}.Assemble(Request{Mode: ModeNormal, Text: "summarize", Attachments: []attachment.Attachment{att}})

	if !strings.Contains(got.Instruction, "File: notes.txt (text/plain, 17 bytes)") {
		t.Errorf("missing per-file header: %q", got.Instruction)
	}
	if !strings.Contains(got.Instruction, "remember the milk") {
		t.Error("document text should be inlined")
	}
	if got.NeedsVision {
		t.Error("plain text attachment must not require vision")
	}
}

func TestAssemble_NeverInlinesImages(t *testing.T) {
	att := imageAttachment("shot.png")
	got := Assembler{}.Assemble(Request{Mode: ModeNormal, Text: "describe", Attachments: []attachment.Attachment{att}})

	if strings.Contains(got.Instruction, att.Content) {
		t.Error("image payload must not be inlined as text")
	}
	if !got.NeedsVision {
		t.Error("image attachment requires vision")
	}
}

func TestAssemble_PDFTextInlinedImagesNot(t *testing.T) {
	att := pdfAttachment("doc.pdf")
	got := Assembler{}.Assemble(Request{Mode: ModeNormal, Text: "review", Attachments: []attachment.Attachment{att}})

	if !strings.Contains(got.Instruction, "pdf text") {
		t.Error("PDF text layer should be inlined")
	}
	if strings.Contains(got.Instruction, att.Pages[0].Image) {
		t.Error("page image must not be inlined")
	}
	if !got.NeedsVision {
		t.Error("paged attachment requires vision")
	}
}

func TestAssemble_EmptyTextWithAttachment(t *testing.T) {
	att := textAttachment("notes.txt", "content")
	got := Assembler{}.Assemble(Request{Mode: ModeNormal, Attachments: []attachment.Attachment{att}})

	if !strings.Contains(got.Instruction, defaultDirective) {
		t.Errorf("empty message with attachments should use the default directive, got %q", got.Instruction)
	}
}

// =============================================================================
// MODE TOGGLING
// =============================================================================

func TestMode_Toggle(t *testing.T) {
	tests := []struct {
		current Mode
		target  Mode
		want    Mode
	}{
		{ModeNormal, ModeCode, ModeCode},
		{ModeCode, ModeCode, ModeNormal},
		{ModeWebApp, ModeCode, ModeCode},
		{ModeCode, ModeWebApp, ModeWebApp},
		{ModeWebApp, ModeWebApp, ModeNormal},
	}
	for _, tc := range tests {
		if got := tc.current.Toggle(tc.target); got != tc.want {
			t.Errorf("%v.Toggle(%v) = %v, want %v", tc.current, tc.target, got, tc.want)
		}
	}
}

func TestMode_String(t *testing.T) {
	if ModeNormal.String() != "normal" || ModeCode.String() != "code" || ModeWebApp.String() != "webapp" {
		t.Error("unexpected mode names")
	}
}
