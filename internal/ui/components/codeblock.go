// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the multichat TUI.
package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/multichat-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock renders a fenced code block with syntax highlighting and line
// numbers.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
	Theme    *styles.Theme
}

// NewCodeBlock creates a new code block.
func NewCodeBlock(theme *styles.Theme, language, code string) CodeBlock {
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
		Theme:    theme,
	}
}

// SetMaxWidth sets the maximum width for the code block.
func (c *CodeBlock) SetMaxWidth(width int) {
	c.MaxWidth = width
}

// Render renders the code block with styling.
func (c CodeBlock) Render() string {
	code := strings.TrimRight(c.Code, "\n")

	language := c.Language
	if language == "" || language == "text" {
		language = detectLanguage(code)
	}

	highlighted := highlightCode(code, language)
	lines := strings.Split(highlighted, "\n")

	var renderedLines []string
	for i, line := range lines {
		lineNum := c.Theme.CodeLineNum.Render(strconv.Itoa(i + 1))
		// Line already carries chroma's ANSI styling.
		renderedLines = append(renderedLines, lineNum+line)
	}
	content := strings.Join(renderedLines, "\n")

	var header string
	if c.Language != "" {
		header = c.Theme.CodeLangBadge.Render(c.Language) + "\n"
	}

	maxWidth := c.MaxWidth - 4
	if maxWidth < 20 {
		maxWidth = 20
	}

	return c.Theme.CodeBlock.MaxWidth(maxWidth).Render(header + content)
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlightCode applies syntax highlighting to code using the chroma library.
// Returns the original text when highlighting fails.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// detectLanguage attempts to detect the programming language of the code.
func detectLanguage(code string) string {
	if lexer := lexers.Analyse(code); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}
