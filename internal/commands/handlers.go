// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/multichat-tui/internal/conversation"
	"github.com/jeranaias/multichat-tui/internal/prompt"
	"github.com/jeranaias/multichat-tui/internal/transcript"
)

// ErrNoCodeBlocks indicates /copy found nothing to copy.
var ErrNoCodeBlocks = errors.New("no code blocks found")

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// HandlerContext gives command handlers access to the application state
// they operate on. The host populates it before dispatch.
type HandlerContext struct {
	// Store is the active conversation log.
	Store *conversation.Store

	// Mode is the operation mode at dispatch time.
	Mode prompt.Mode

	// TranscriptDir is where /savecon writes when no path is given.
	TranscriptDir string

	// Registry backs /help.
	Registry *Registry
}

// =============================================================================
// RESULT MESSAGES
// =============================================================================

// These messages are produced by command handlers and consumed by the
// host's update loop.

// HelpMsg carries the command reference text.
type HelpMsg struct {
	Text string
}

// ClearedMsg indicates the conversation was cleared.
type ClearedMsg struct {
	Err error
}

// ReconfigureMsg signals the host to return to provider configuration.
type ReconfigureMsg struct{}

// CopiedMsg indicates copy completion.
type CopiedMsg struct {
	Blocks int
	Err    error
}

// ModeChangedMsg indicates the operation mode changed.
type ModeChangedMsg struct {
	Mode prompt.Mode
}

// TranscriptSavedMsg indicates /savecon completion.
type TranscriptSavedMsg struct {
	Path string
	Err  error
}

// TranscriptLoadedMsg indicates /loadcon completion.
type TranscriptLoadedMsg struct {
	Count int
	Err   error
}

// ErrorMsg carries inline command feedback (unknown command, bad usage).
type ErrorMsg struct {
	Err error
}

// =============================================================================
// DISPATCH
// =============================================================================

// Execute parses input and runs the matching command. The returned tea.Cmd
// produces one of the result messages above; unknown commands yield an
// ErrorMsg and change no state.
func Execute(p *Parser, ctx *HandlerContext, input string) tea.Cmd {
	result := p.Parse(input)
	if !result.IsCommand {
		return nil
	}
	if result.Command == nil {
		err := fmt.Errorf("unknown command: %s", result.CommandName)
		return func() tea.Msg { return ErrorMsg{Err: err} }
	}
	return result.Command.Handler(ctx, result.Args)
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleHelp(ctx *HandlerContext, _ []string) tea.Cmd {
	text := ctx.Registry.HelpText()
	return func() tea.Msg { return HelpMsg{Text: text} }
}

// handleClear empties the store and leaves a single system acknowledgement
// as the new log content.
func handleClear(ctx *HandlerContext, _ []string) tea.Cmd {
	return func() tea.Msg {
		if err := ctx.Store.Clear(); err != nil {
			return ClearedMsg{Err: err}
		}
		err := ctx.Store.Append(conversation.NewSystemMessage("Conversation cleared."))
		return ClearedMsg{Err: err}
	}
}

func handleModel(_ *HandlerContext, _ []string) tea.Cmd {
	return func() tea.Msg { return ReconfigureMsg{} }
}

// handleCopy concatenates the code blocks of the most recent message onto
// the clipboard.
func handleCopy(ctx *HandlerContext, _ []string) tea.Cmd {
	return func() tea.Msg {
		last, ok := ctx.Store.Last()
		if !ok {
			return CopiedMsg{Err: ErrNoCodeBlocks}
		}

		blocks := last.CodeBlocks
		if blocks == nil {
			blocks = conversation.ExtractCodeBlocks(last.Content)
		}
		if len(blocks) == 0 {
			return CopiedMsg{Err: ErrNoCodeBlocks}
		}

		parts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			parts = append(parts, b.Code)
		}
		if err := clipboard.WriteAll(strings.Join(parts, "\n\n")); err != nil {
			return CopiedMsg{Err: fmt.Errorf("failed to copy: %w", err)}
		}
		return CopiedMsg{Blocks: len(blocks)}
	}
}

func handleCode(ctx *HandlerContext, _ []string) tea.Cmd {
	next := ctx.Mode.Toggle(prompt.ModeCode)
	return func() tea.Msg { return ModeChangedMsg{Mode: next} }
}

func handleWebApp(ctx *HandlerContext, _ []string) tea.Cmd {
	next := ctx.Mode.Toggle(prompt.ModeWebApp)
	return func() tea.Msg { return ModeChangedMsg{Mode: next} }
}

func handleSaveTranscript(ctx *HandlerContext, args []string) tea.Cmd {
	path := filepath.Join(ctx.TranscriptDir, transcript.DefaultFileName())
	if len(args) > 0 {
		path = args[0]
	}
	msgs := ctx.Store.Messages()
	return func() tea.Msg {
		if len(msgs) == 0 {
			return TranscriptSavedMsg{Err: errors.New("nothing to save")}
		}
		if err := transcript.WriteFile(path, msgs); err != nil {
			return TranscriptSavedMsg{Err: err}
		}
		return TranscriptSavedMsg{Path: path}
	}
}

func handleLoadTranscript(ctx *HandlerContext, args []string) tea.Cmd {
	if len(args) == 0 {
		return func() tea.Msg {
			return TranscriptLoadedMsg{Err: errors.New("usage: /loadcon <path>")}
		}
	}
	path := args[0]
	return func() tea.Msg {
		msgs, err := transcript.LoadFile(path)
		if err != nil {
			return TranscriptLoadedMsg{Err: err}
		}
		for _, msg := range msgs {
			if err := ctx.Store.Append(msg); err != nil {
				return TranscriptLoadedMsg{Err: err}
			}
		}
		return TranscriptLoadedMsg{Count: len(msgs)}
	}
}
