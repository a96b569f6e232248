// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestListModels_GeminiFiltersByGenerationSupport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[
			{"name":"models/gemini-1.5-pro","supportedGenerationMethods":["generateContent","countTokens"]},
			{"name":"models/embedding-001","supportedGenerationMethods":["embedContent"]},
			{"name":"models/gemini-1.5-flash","supportedGenerationMethods":["generateContent"]}
		]}`))
	}))
	defer server.Close()

	got, err := ListModels(context.Background(), Config{Kind: KindGemini, APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}

	want := []string{"gemini-1.5-flash", "gemini-1.5-pro"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("models = %v, want %v", got, want)
	}
}

func TestListModels_OpenAIFiltersAndSorts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing bearer auth: %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"data":[
			{"id":"o1-mini"},
			{"id":"gpt-4o"},
			{"id":"ft:gpt-4o:acme::abc123"},
			{"id":"system-moderation-latest"},
			{"id":"gpt-3.5-turbo"},
			{"id":"chatgpt-4o-latest"}
		]}`))
	}))
	defer server.Close()

	got, err := ListModels(context.Background(), Config{Kind: KindOpenAI, APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}

	// GPT-named models first, then the rest, each group alphabetical;
	// fine-tuned and system ids excluded.
	want := []string{"gpt-3.5-turbo", "gpt-4o", "chatgpt-4o-latest", "o1-mini"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("models = %v, want %v", got, want)
	}
}

func TestListModels_RequiresKey(t *testing.T) {
	if _, err := ListModels(context.Background(), Config{Kind: KindOpenAI}); err != ErrNotConfigured {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
