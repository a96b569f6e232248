// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for multichat.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Model    string
	Provider string
	Quiet    bool

	// Command-specific
	Query string
	Files []string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `multichat - multi-provider LLM chat for the terminal

Chat with Gemini or OpenAI models, with file, image, and PDF attachments.
PDFs are rendered page by page so vision models see the layout, not just
the text.

Usage:
  multichat                          Start the TUI (default)
  multichat ask "question" [file...] Ask a single question, optionally
                                     attaching files
  multichat version                  Show version information
  multichat help                     Show this help

Flags:
  -m, --model NAME       Use a specific model (overrides config)
  -p, --provider NAME    Provider: gemini or openai (overrides config)
  -q, --quiet            Plain output, no markdown rendering

Environment:
  MULTICHAT_PROVIDER, MULTICHAT_MODEL, MULTICHAT_API_KEY,
  MULTICHAT_BASE_URL, MULTICHAT_THEME
  GEMINI_API_KEY / OPENAI_API_KEY are used when no explicit key is set.

Configuration: ~/.multichat/config.toml
`

// Parse parses os.Args and returns the command and its arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given arguments. Split out for testing.
func ParseArgs(argv []string) (Command, Args) {
	var args Args

	var positional []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-m", "--model":
			if i+1 < len(argv) {
				i++
				args.Model = argv[i]
			}
		case "-p", "--provider":
			if i+1 < len(argv) {
				i++
				args.Provider = strings.ToLower(argv[i])
			}
		case "-q", "--quiet":
			args.Quiet = true
		case "-h", "--help":
			return CmdHelp, args
		case "-v", "--version":
			return CmdVersion, args
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return CmdTUI, args
	}

	switch positional[0] {
	case "ask":
		if len(positional) > 1 {
			args.Query = positional[1]
			args.Files = positional[2:]
		}
		return CmdAsk, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		args.Raw = positional
		return CmdTUI, args
	}
}

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("multichat %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildDate)
	fmt.Printf("  runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
