// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for multichat.
// Input beginning with "/" is interpreted here and never sent to a
// provider.
package commands

import (
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help").
	Name string

	// Aliases are alternative names.
	Aliases []string

	// Description is shown in help.
	Description string

	// Usage shows argument syntax when it differs from the bare name.
	Usage string

	// Handler executes the command.
	Handler func(ctx *HandlerContext, args []string) tea.Cmd
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns the registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// HelpText renders the static command reference.
func (r *Registry) HelpText() string {
	var sb strings.Builder
	sb.WriteString("Available commands:\n\n")
	for _, cmd := range r.All() {
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		sb.WriteString("  ")
		sb.WriteString(usage)
		for i := len(usage); i < 24; i++ {
			sb.WriteByte(' ')
		}
		sb.WriteString(cmd.Description)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Handler:     handleHelp,
	})

	r.Register(&Command{
		Name:        "/clear",
		Description: "Clear the conversation",
		Handler:     handleClear,
	})

	r.Register(&Command{
		Name:        "/model",
		Description: "Return to provider configuration",
		Handler:     handleModel,
	})

	r.Register(&Command{
		Name:        "/copy",
		Description: "Copy code blocks from the last message",
		Handler:     handleCopy,
	})

	r.Register(&Command{
		Name:        "/code",
		Description: "Toggle code-only mode",
		Handler:     handleCode,
	})

	r.Register(&Command{
		Name:        "/webapp",
		Description: "Toggle webapp-only mode",
		Handler:     handleWebApp,
	})

	r.Register(&Command{
		Name:        "/savecon",
		Description: "Save the conversation as a transcript",
		Usage:       "/savecon [path]",
		Handler:     handleSaveTranscript,
	})

	r.Register(&Command{
		Name:        "/loadcon",
		Description: "Load a saved transcript",
		Usage:       "/loadcon <path>",
		Handler:     handleLoadTranscript,
	})
}
