// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeranaias/multichat-tui/internal/attachment"
)

func geminiTestConfig(baseURL string) Config {
	return Config{Kind: KindGemini, Model: "gemini-pro-vision", APIKey: "test-key", BaseURL: baseURL}
}

func imageAtt() attachment.Attachment {
	att := attachment.New("shot.png", "image/png", 64)
	att.Content = "aW1hZ2VkYXRh"
	return *att
}

func pagedAtt() attachment.Attachment {
	att := attachment.New("doc.pdf", "application/pdf", 256)
	att.Content = "--- Page 1 ---\ntext"
	att.Pages = []attachment.DocumentPage{
		{PageNumber: 1, Image: "cGFnZTE=", Text: "text"},
		{PageNumber: 2, Image: "cGFnZTI=", Text: "more"},
	}
	return *att
}

// =============================================================================
// REQUEST SHAPE
// =============================================================================

func TestGemini_TextOnlyRequest(t *testing.T) {
	var captured geminiRequest
	var capturedQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedQuery = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"the answer"}]}}]}`))
	}))
	defer server.Close()

	client, err := New(geminiTestConfig(server.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := client.Send(context.Background(), "what is up", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got != "the answer" {
		t.Errorf("response = %q, want %q", got, "the answer")
	}

	if !strings.Contains(capturedQuery, "key=test-key") {
		t.Errorf("API key must travel as query parameter, got %q", capturedQuery)
	}
	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 1 {
		t.Fatalf("text-only request must have a single text part: %#v", captured)
	}
	if captured.Contents[0].Parts[0].Text != "what is up" {
		t.Errorf("instruction = %q", captured.Contents[0].Parts[0].Text)
	}
	if captured.GenerationConfig.MaxOutputTokens != geminiMaxOutputTokens {
		t.Errorf("generation config not set: %#v", captured.GenerationConfig)
	}
}

func TestGemini_VisionRequestParts(t *testing.T) {
	var captured geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"seen"}]}}]}`))
	}))
	defer server.Close()

	client, _ := New(geminiTestConfig(server.URL))
	atts := []attachment.Attachment{imageAtt(), pagedAtt()}

	if _, err := client.Send(context.Background(), "describe", atts); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	parts := captured.Contents[0].Parts
	// One text part plus one inline part per image and per page.
	if len(parts) != 4 {
		t.Fatalf("got %d parts, want 4: %#v", len(parts), parts)
	}
	if parts[0].Text != "describe" || parts[0].InlineData != nil {
		t.Errorf("first part must be the instruction text: %#v", parts[0])
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/png" || parts[1].InlineData.Data != "aW1hZ2VkYXRh" {
		t.Errorf("image inline part wrong: %#v", parts[1])
	}
	if parts[2].InlineData == nil || parts[2].InlineData.Data != "cGFnZTE=" {
		t.Errorf("page 1 inline part wrong: %#v", parts[2])
	}
	if parts[3].InlineData == nil || parts[3].InlineData.Data != "cGFnZTI=" {
		t.Errorf("page 2 inline part wrong: %#v", parts[3])
	}
}

// =============================================================================
// RESPONSE HANDLING
// =============================================================================

func TestGemini_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	client, _ := New(geminiTestConfig(server.URL))
	_, err := client.Send(context.Background(), "hi", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", apiErr.Status)
	}
	if apiErr.Message != "quota exceeded" {
		t.Errorf("Message = %q, want provider message", apiErr.Message)
	}
}

func TestGemini_InvalidResponseShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no candidates", `{"candidates":[]}`},
		{"missing content", `{"candidates":[{}]}`},
		{"no parts", `{"candidates":[{"content":{"parts":[]}}]}`},
		{"not json", `<html>oops</html>`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, _ := New(geminiTestConfig(server.URL))
			_, err := client.Send(context.Background(), "hi", nil)
			if !errors.Is(err, ErrInvalidResponse) {
				t.Errorf("expected ErrInvalidResponse, got %v", err)
			}
		})
	}
}

func TestGemini_EmptyTextPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":""}]}}]}`))
	}))
	defer server.Close()

	client, _ := New(geminiTestConfig(server.URL))
	got, err := client.Send(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("empty text is a valid result, got error: %v", err)
	}
	if got != "" {
		t.Errorf("response = %q, want empty", got)
	}
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Kind: "mystery", Model: "m", APIKey: "k"}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := New(Config{Kind: KindGemini, Model: "m"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := New(Config{Kind: KindGemini, Model: "m", APIKey: "k"}); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
