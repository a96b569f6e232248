// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		cmd  Command
	}{
		{"no args starts TUI", nil, CmdTUI},
		{"ask", []string{"ask", "hello"}, CmdAsk},
		{"version", []string{"version"}, CmdVersion},
		{"version flag", []string{"--version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"help flag", []string{"-h"}, CmdHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := ParseArgs(tt.argv)
			if cmd != tt.cmd {
				t.Errorf("ParseArgs(%v) = %v, want %v", tt.argv, cmd, tt.cmd)
			}
		})
	}
}

func TestParseAskArguments(t *testing.T) {
	cmd, args := ParseArgs([]string{"ask", "summarize this", "a.pdf", "b.png"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Query != "summarize this" {
		t.Errorf("query = %q", args.Query)
	}
	if len(args.Files) != 2 || args.Files[0] != "a.pdf" || args.Files[1] != "b.png" {
		t.Errorf("files = %v", args.Files)
	}
}

func TestParseFlags(t *testing.T) {
	cmd, args := ParseArgs([]string{"-m", "gpt-4o", "-p", "OpenAI", "-q", "ask", "hi"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Model != "gpt-4o" {
		t.Errorf("model = %q", args.Model)
	}
	if args.Provider != "openai" {
		t.Errorf("provider = %q, want lowercased openai", args.Provider)
	}
	if !args.Quiet {
		t.Error("quiet flag not set")
	}
}

func TestParseUnknownPositionalFallsBackToTUI(t *testing.T) {
	cmd, args := ParseArgs([]string{"something"})
	if cmd != CmdTUI {
		t.Errorf("cmd = %v, want CmdTUI", cmd)
	}
	if len(args.Raw) != 1 || args.Raw[0] != "something" {
		t.Errorf("raw = %v", args.Raw)
	}
}
