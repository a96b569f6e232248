// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/jeranaias/multichat-tui/internal/attachment"
)

// DefaultOpenAIBaseURL is the production chat-completions endpoint root.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// Fixed generation parameters for the chat-completions request.
const (
	openAITemperature = 0.7
	openAIMaxTokens   = 4096
)

// =============================================================================
// WIRE TYPES
// =============================================================================

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
	Stream      bool            `json:"stream"`
}

// openAIMessage content is either a plain string or, for multimodal
// requests, an ordered array of content parts.
type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// =============================================================================
// OPENAI CLIENT
// =============================================================================

// OpenAIClient speaks the chat-completions wire format.
type OpenAIClient struct {
	cfg     Config
	limiter *rate.Limiter
}

func newOpenAIClient(cfg Config) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &OpenAIClient{cfg: cfg, limiter: newLimiter()}
}

// Model returns the configured model identifier.
func (c *OpenAIClient) Model() string {
	return c.cfg.Model
}

// Send posts one chat-completions request. With images or pages present
// the user message content is an ordered array starting with the text
// entry followed by one image-url entry per image and per rendered PDF
// page, each re-encoded as an inline data URL.
func (c *OpenAIClient) Send(ctx context.Context, instruction string, atts []attachment.Attachment) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var content any = instruction
	if hasVisualPayload(atts) {
		parts := []openAIContentPart{{Type: "text", Text: instruction}}
		for i := range atts {
			att := &atts[i]
			if att.IsImage() {
				parts = append(parts, openAIContentPart{
					Type: "image_url",
					ImageURL: &openAIImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", att.MIMEType, att.Content),
					},
				})
			}
			for _, page := range att.Pages {
				parts = append(parts, openAIContentPart{
					Type: "image_url",
					ImageURL: &openAIImageURL{
						URL: "data:image/png;base64," + page.Image,
					},
				})
			}
		}
		content = parts
	}

	reqBody := openAIRequest{
		Model:       c.cfg.Model,
		Messages:    []openAIMessage{{Role: "user", Content: content}},
		Temperature: openAITemperature,
		MaxTokens:   openAIMaxTokens,
		Stream:      false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	respBody, err := doJSON(ctx, req)
	if err != nil {
		return "", err
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil || parsed.Choices[0].Message.Content == nil {
		return "", ErrInvalidResponse
	}

	// First choice only; empty content passes through to the caller.
	return *parsed.Choices[0].Message.Content, nil
}

func hasVisualPayload(atts []attachment.Attachment) bool {
	for i := range atts {
		if atts[i].IsImage() || atts[i].HasPages() {
			return true
		}
	}
	return false
}
