// multichat - multi-provider LLM chat for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/multichat-tui/internal/cli"
	"github.com/jeranaias/multichat-tui/internal/config"
	"github.com/jeranaias/multichat-tui/internal/conversation"
	"github.com/jeranaias/multichat-tui/internal/provider"
	"github.com/jeranaias/multichat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdAsk:
		os.Exit(cli.HandleAsk(args))
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		os.Exit(runTUI(args))
	}
}

// runTUI starts the interactive chat interface.
func runTUI(args cli.Args) int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: multichat needs an interactive terminal; try 'multichat ask' for scripted use")
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if args.Provider != "" {
		cfg.Provider.Kind = args.Provider
		cfg.ApplyEnvOverrides()
	}
	if args.Model != "" {
		cfg.Provider.Model = args.Model
	}
	config.SetGlobal(cfg)

	store, err := conversation.Open(cfg.Storage.ConversationPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not open conversation store: %v\n", err)
		return 1
	}
	defer store.Close()

	// A fully configured provider skips the selection flow.
	var client provider.Client
	if cfg.Provider.Kind != "" && cfg.Provider.Model != "" && cfg.Provider.APIKey != "" {
		client, err = provider.New(provider.Config{
			Kind:    provider.Kind(cfg.Provider.Kind),
			Model:   cfg.Provider.Model,
			APIKey:  cfg.Provider.APIKey,
			BaseURL: cfg.Provider.BaseURL,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			client = nil
		}
	}

	program := tea.NewProgram(
		chat.New(cfg, store, client),
		tea.WithAltScreen(),
	)

	// Hot-reload config edits into the running session.
	if path, perr := config.Path(); perr == nil {
		if watcher, werr := config.NewWatcher(path, func(next *config.Config, err error) {
			if err != nil {
				return
			}
			config.SetGlobal(next)
			program.Send(chat.ConfigReloadedMsg{Cfg: next})
		}); werr == nil {
			if watcher.Watch() == nil {
				defer watcher.Close()
			}
		}
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
