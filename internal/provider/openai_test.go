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

func openAITestConfig(baseURL string) Config {
	return Config{Kind: KindOpenAI, Model: "gpt-4o", APIKey: "sk-test", BaseURL: baseURL}
}

// =============================================================================
// REQUEST SHAPE
// =============================================================================

func TestOpenAI_TextOnlyRequest(t *testing.T) {
	var capturedAuth string
	var capturedPath string
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAuth = r.Header.Get("Authorization")
		capturedPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"choices":[{"message":{"content":"hello back"}}]}`))
	}))
	defer server.Close()

	client, err := New(openAITestConfig(server.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := client.Send(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got != "hello back" {
		t.Errorf("response = %q, want %q", got, "hello back")
	}

	if capturedAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want bearer token", capturedAuth)
	}
	if capturedPath != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", capturedPath)
	}
	if captured["model"] != "gpt-4o" || captured["stream"] != false {
		t.Errorf("request fields wrong: %#v", captured)
	}

	msgs := captured["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	msg := msgs[0].(map[string]any)
	if msg["role"] != "user" {
		t.Errorf("role = %v, want user", msg["role"])
	}
	if _, isString := msg["content"].(string); !isString {
		t.Errorf("text-only content must be a plain string: %#v", msg["content"])
	}
}

func TestOpenAI_VisionRequestContentArray(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"choices":[{"message":{"content":"described"}}]}`))
	}))
	defer server.Close()

	client, _ := New(openAITestConfig(server.URL))
	atts := []attachment.Attachment{imageAtt(), pagedAtt()}

	if _, err := client.Send(context.Background(), "describe these", atts); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	msg := captured["messages"].([]any)[0].(map[string]any)
	parts, ok := msg["content"].([]any)
	if !ok {
		t.Fatalf("vision content must be an array: %#v", msg["content"])
	}
	// Text entry first, then one image-url entry per image and per page.
	if len(parts) != 4 {
		t.Fatalf("got %d content parts, want 4", len(parts))
	}

	first := parts[0].(map[string]any)
	if first["type"] != "text" || first["text"] != "describe these" {
		t.Errorf("first entry must be the text: %#v", first)
	}

	second := parts[1].(map[string]any)
	if second["type"] != "image_url" {
		t.Errorf("second entry type = %v", second["type"])
	}
	u := second["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(u, "data:image/png;base64,") {
		t.Errorf("image must be re-encoded as data URL: %q", u)
	}

	fourth := parts[3].(map[string]any)
	u = fourth["image_url"].(map[string]any)["url"].(string)
	if u != "data:image/png;base64,cGFnZTI=" {
		t.Errorf("page data URL = %q", u)
	}
}

// =============================================================================
// RESPONSE HANDLING
// =============================================================================

func TestOpenAI_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	client, _ := New(openAITestConfig(server.URL))
	_, err := client.Send(context.Background(), "hi", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "invalid api key" {
		t.Errorf("unexpected error fields: %#v", apiErr)
	}
}

func TestOpenAI_InvalidResponseShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"missing message", `{"choices":[{}]}`},
		{"missing content", `{"choices":[{"message":{}}]}`},
		{"wrong document", `{"ok":true}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, _ := New(openAITestConfig(server.URL))
			_, err := client.Send(context.Background(), "hi", nil)
			if !errors.Is(err, ErrInvalidResponse) {
				t.Errorf("expected ErrInvalidResponse, got %v", err)
			}
		})
	}
}

func TestOpenAI_EmptyContentPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	}))
	defer server.Close()

	client, _ := New(openAITestConfig(server.URL))
	got, err := client.Send(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("empty content is a valid result, got error: %v", err)
	}
	if got != "" {
		t.Errorf("response = %q, want empty", got)
	}
}

func TestOpenAI_ErrorWithoutEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broke"))
	}))
	defer server.Close()

	client, _ := New(openAITestConfig(server.URL))
	_, err := client.Send(context.Background(), "hi", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", apiErr.Status)
	}
	// Falls back to the standard status text when the body is unstructured.
	if apiErr.Message == "" {
		t.Error("expected a fallback message")
	}
}
