// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/multichat-tui/internal/attachment"
	"github.com/jeranaias/multichat-tui/internal/conversation"
)

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestRoundTrip(t *testing.T) {
	att := attachment.New("report.pdf", "application/pdf", 2048)
	original := []conversation.Message{
		conversation.NewUserMessage("summarize this", []attachment.Attachment{*att}),
		conversation.NewAssistantMessage("Here is a summary.\n\n```go\nfunc main() {}\n```"),
		conversation.NewSystemMessage("mode set to code"),
		conversation.NewUserMessage("thanks", nil),
	}

	reloaded := Parse(Render(original))

	if len(reloaded) != len(original) {
		t.Fatalf("round trip lost messages: got %d, want %d", len(reloaded), len(original))
	}
	for i := range original {
		if reloaded[i].Role != original[i].Role {
			t.Errorf("message %d role = %q, want %q", i, reloaded[i].Role, original[i].Role)
		}
		if reloaded[i].Content != strings.TrimSpace(original[i].Content) {
			t.Errorf("message %d content = %q, want %q", i, reloaded[i].Content, original[i].Content)
		}
	}

	// Attachment metadata survives.
	if len(reloaded[0].Attachments) != 1 {
		t.Fatalf("attachment listing lost: %#v", reloaded[0].Attachments)
	}
	got := reloaded[0].Attachments[0]
	if got.Name != "report.pdf" || got.MIMEType != "application/pdf" || got.SizeBytes != 2048 {
		t.Errorf("attachment metadata = %#v", got)
	}

	// Code blocks are re-extracted for assistant messages.
	if len(reloaded[1].CodeBlocks) != 1 || reloaded[1].CodeBlocks[0].Code != "func main() {}" {
		t.Errorf("code blocks not re-extracted: %#v", reloaded[1].CodeBlocks)
	}
}

func TestWriteFileAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.md")
	msgs := []conversation.Message{
		conversation.NewUserMessage("hello", nil),
		conversation.NewAssistantMessage("hi"),
	}

	if err := WriteFile(path, msgs); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("transcript not written: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Content != "hello" || loaded[1].Content != "hi" {
		t.Errorf("loaded = %#v", loaded)
	}
}

// =============================================================================
// PARSER TOLERANCE
// =============================================================================

func TestParse_CaseInsensitiveRoles(t *testing.T) {
	doc := "## USER\n\nshouted\n\n## assistant\n\nquiet\n\n## System\n\nnoted\n"

	msgs := Parse([]byte(doc))
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	wantRoles := []string{"user", "assistant", "system"}
	for i, want := range wantRoles {
		if msgs[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, msgs[i].Role, want)
		}
	}
}

func TestParse_SkipsUnrecognizedSections(t *testing.T) {
	doc := "# title preamble\n\nintro text\n\n## Narrator\n\nignored\n\n## User\n\nkept\n"

	msgs := Parse([]byte(doc))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "kept" {
		t.Errorf("unexpected message: %#v", msgs[0])
	}
}

// A non-role "##" line after the first role heading is body text, not a
// section boundary. Assistant replies legitimately contain markdown
// sub-headings; dropping them would lose content on reload.
func TestParse_NonRoleHeadingKeptInBody(t *testing.T) {
	doc := "## Assistant\n\nIntro.\n\n## Results\n\nDetails here.\n\n## User\n\nfollow-up\n"

	msgs := Parse([]byte(doc))
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "assistant" {
		t.Errorf("first role = %q, want assistant", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "## Results") || !strings.Contains(msgs[0].Content, "Details here.") {
		t.Errorf("sub-heading content lost from body: %q", msgs[0].Content)
	}
	if msgs[1].Role != "user" || msgs[1].Content != "follow-up" {
		t.Errorf("unexpected second message: %#v", msgs[1])
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	if msgs := Parse([]byte("no headings here")); msgs != nil {
		t.Errorf("expected nil, got %#v", msgs)
	}
}

func TestParse_EmptySectionSkipped(t *testing.T) {
	doc := "## User\n\n## Assistant\n\nreal content\n"

	msgs := Parse([]byte(doc))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Role != "assistant" {
		t.Errorf("role = %q, want assistant", msgs[0].Role)
	}
}
