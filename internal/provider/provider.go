// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider translates assembled instructions and attachments into
// provider-specific wire requests and parses responses back into plain
// text.
//
// Two wire formats are supported as a closed variant: a Google-style
// generate-content endpoint and an OpenAI-compatible chat-completions
// endpoint. Each variant has one request-building client behind the common
// Client interface.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/multichat-tui/internal/attachment"
)

// Configuration constants shared by both clients.
const (
	// DefaultTimeout bounds a single provider request.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize caps response bodies to prevent memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

// sharedHTTPClient pools connections across all provider requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
	Timeout: DefaultTimeout,
}

// Error values for common provider failures.
var (
	// ErrNotConfigured indicates a missing API key.
	ErrNotConfigured = errors.New("provider API key not configured")

	// ErrInvalidResponse indicates a success response missing the expected
	// result-field shape. Never silently mapped to empty text.
	ErrInvalidResponse = errors.New("invalid response format")

	// ErrUnknownKind indicates a provider kind outside the closed variant.
	ErrUnknownKind = errors.New("unknown provider kind")
)

// APIError is a structured error returned by a provider endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("provider error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// PROVIDER KIND AND CONFIG
// =============================================================================

// Kind selects one of the two supported wire formats.
type Kind string

const (
	// KindGemini is the Google-style generate-content format.
	KindGemini Kind = "gemini"

	// KindOpenAI is the OpenAI-compatible chat-completions format.
	KindOpenAI Kind = "openai"
)

// Config identifies one configured provider session. It is passed
// explicitly into clients at construction time, never read from ambient
// process state, and replaced wholesale on provider switch.
type Config struct {
	Kind    Kind
	Model   string
	APIKey  string
	BaseURL string
}

// Validate checks the config for a usable session.
func (c Config) Validate() error {
	switch c.Kind {
	case KindGemini, KindOpenAI:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("model not configured")
	}
	return nil
}

// =============================================================================
// CLIENT INTERFACE
// =============================================================================

// Client sends one assembled instruction plus its visual attachments and
// returns the provider's textual response.
type Client interface {
	// Send performs a single request. Requests are not retried: a failure
	// surfaces to the caller, who may resend. Empty response text is a
	// valid result and passes through unchanged.
	Send(ctx context.Context, instruction string, atts []attachment.Attachment) (string, error)

	// Model returns the configured model identifier.
	Model() string
}

// New builds the client for the configured provider kind.
func New(cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case KindGemini:
		return newGeminiClient(cfg), nil
	case KindOpenAI:
		return newOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// newLimiter paces outgoing requests. Providers rate-limit aggressively on
// their side; a small client-side budget keeps bursts polite without
// delaying interactive use.
func newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(500*time.Millisecond), 2)
}

// =============================================================================
// SHARED HTTP PLUMBING
// =============================================================================

// doJSON posts a JSON body and returns the raw response body for 2xx
// statuses. Non-success statuses are mapped to *APIError carrying any
// structured message the provider returned.
func doJSON(ctx context.Context, req *http.Request) ([]byte, error) {
	logRequest(req)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// readResponse reads a response body through the size cap. A body that
// fills the cap exactly is treated as truncated.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// errorEnvelope matches the error shape both providers share.
type errorEnvelope struct {
	Error struct {
		Code    errorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

// errorCode accepts both wire forms: Gemini sends a numeric code (429),
// OpenAI a string ("invalid_api_key").
type errorCode string

func (c *errorCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = errorCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = errorCode(n.String())
	return nil
}

// parseAPIError builds an APIError from a non-success response.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Code = string(envelope.Error.Code)
	}
	return apiErr
}

// logRequest logs method and path only. Headers may carry credentials and
// bodies may carry user content; neither is logged.
func logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs status and duration only.
func logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}
