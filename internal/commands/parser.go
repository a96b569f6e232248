// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"unicode"
)

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult contains the result of parsing user input.
type ParseResult struct {
	// IsCommand is true if the input starts with /.
	IsCommand bool

	// Command is the matched command (nil if not found).
	Command *Command

	// CommandName is the raw first token (e.g., "/help").
	CommandName string

	// Args are the remaining whitespace-delimited tokens.
	Args []string

	// RawInput is the trimmed original input.
	RawInput string
}

// =============================================================================
// PARSER
// =============================================================================

// Parser resolves slash input against a registry.
type Parser struct {
	registry *Registry
}

// NewParser creates a parser over the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse splits user input into command and arguments. Returns
// IsCommand=false when the input doesn't start with /.
func (p *Parser) Parse(input string) ParseResult {
	input = strings.TrimSpace(input)
	result := ParseResult{RawInput: input}

	if !strings.HasPrefix(input, "/") {
		return result
	}
	result.IsCommand = true

	parts := splitTokens(input)
	if len(parts) == 0 {
		return result
	}
	result.CommandName = parts[0]
	result.Args = parts[1:]
	result.Command = p.registry.Get(result.CommandName)
	return result
}

// splitTokens splits on whitespace, respecting single and double quotes so
// file paths with spaces survive as one argument.
func splitTokens(input string) []string {
	var tokens []string
	var current strings.Builder
	var inSingle, inDouble bool

	for _, char := range input {
		switch {
		case char == '\'' && !inDouble:
			inSingle = !inSingle
		case char == '"' && !inSingle:
			inDouble = !inDouble
		case unicode.IsSpace(char) && !inSingle && !inDouble:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// IsCommand reports whether the input looks like a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}
