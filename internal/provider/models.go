// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// =============================================================================
// MODEL LISTING
// =============================================================================

// ListModels fetches the selectable model identifiers for the configured
// provider. Used only during provider configuration.
func ListModels(ctx context.Context, cfg Config) ([]string, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	switch cfg.Kind {
	case KindGemini:
		return listGeminiModels(ctx, cfg)
	case KindOpenAI:
		return listOpenAIModels(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// listGeminiModels returns models supporting content generation, with the
// "models/" resource prefix stripped.
func listGeminiModels(ctx context.Context, cfg Config) ([]string, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultGeminiBaseURL
	}
	endpoint := fmt.Sprintf("%s/v1beta/models?key=%s",
		strings.TrimSuffix(base, "/"), url.QueryEscape(cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := doJSON(ctx, req)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Models []struct {
			Name                       string   `json:"name"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var models []string
	for _, m := range parsed.Models {
		supported := false
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				supported = true
				break
			}
		}
		if supported {
			models = append(models, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	sort.Strings(models)
	return models, nil
}

// listOpenAIModels returns chat-capable models, excluding fine-tuned and
// system identifiers, with GPT-named models first and each group sorted
// alphabetically.
func listOpenAIModels(ctx context.Context, cfg Config) ([]string, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOpenAIBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(base, "/")+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	body, err := doJSON(ctx, req)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var models []string
	for _, m := range parsed.Data {
		if isFineTunedOrSystem(m.ID) {
			continue
		}
		models = append(models, m.ID)
	}
	sort.Slice(models, func(i, j int) bool {
		gi := strings.HasPrefix(models[i], "gpt")
		gj := strings.HasPrefix(models[j], "gpt")
		if gi != gj {
			return gi
		}
		return models[i] < models[j]
	})
	return models, nil
}

// isFineTunedOrSystem filters model ids that are not directly selectable:
// fine-tune artifacts and internal/system entries.
func isFineTunedOrSystem(id string) bool {
	return strings.HasPrefix(id, "ft:") ||
		strings.Contains(id, ":ft-") ||
		strings.HasPrefix(id, "system-")
}
