// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/jeranaias/multichat-tui/internal/attachment"
)

// DefaultGeminiBaseURL is the production generate-content endpoint root.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// Fixed generation parameters for the generate-content request.
const (
	geminiTemperature     = 0.7
	geminiTopK            = 40
	geminiTopP            = 0.95
	geminiMaxOutputTokens = 8192
)

// =============================================================================
// WIRE TYPES
// =============================================================================

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// =============================================================================
// GEMINI CLIENT
// =============================================================================

// GeminiClient speaks the generate-content wire format.
type GeminiClient struct {
	cfg     Config
	limiter *rate.Limiter
}

func newGeminiClient(cfg Config) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &GeminiClient{cfg: cfg, limiter: newLimiter()}
}

// Model returns the configured model identifier.
func (c *GeminiClient) Model() string {
	return c.cfg.Model
}

// Send posts one generate-content request. With images or pages present
// the single content entry carries the instruction text followed by one
// inline-data part per image and per rendered PDF page; page text is
// already folded into the instruction and is not resent.
func (c *GeminiClient) Send(ctx context.Context, instruction string, atts []attachment.Attachment) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	parts := []geminiPart{{Text: instruction}}
	for i := range atts {
		att := &atts[i]
		if att.IsImage() {
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MIMEType: att.MIMEType,
				Data:     att.Content,
			}})
		}
		for _, page := range att.Pages {
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MIMEType: "image/png",
				Data:     page.Image,
			}})
		}
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     geminiTemperature,
			TopK:            geminiTopK,
			TopP:            geminiTopP,
			MaxOutputTokens: geminiMaxOutputTokens,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// The key travels as a query parameter in this wire format.
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := doJSON(ctx, req)
	if err != nil {
		return "", err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(parsed.Candidates) == 0 || parsed.Candidates[0].Content == nil || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrInvalidResponse
	}

	// First candidate only; empty text passes through to the caller.
	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
