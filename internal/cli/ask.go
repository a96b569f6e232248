// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single query command handler for the multichat CLI.
//
// Handles "multichat ask", which runs the full attachment and prompt
// pipeline once and prints the response to stdout.
//
// Examples:
//
//	multichat ask "What is the capital of France?"
//	multichat ask "Summarize this" report.pdf
//	multichat ask -m gpt-4o "Describe the diagram" diagram.png
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/multichat-tui/internal/attachment"
	"github.com/jeranaias/multichat-tui/internal/config"
	"github.com/jeranaias/multichat-tui/internal/document"
	"github.com/jeranaias/multichat-tui/internal/prompt"
	"github.com/jeranaias/multichat-tui/internal/provider"
)

// HandleAsk runs a one-shot question through the full pipeline.
func HandleAsk(args Args) int {
	if strings.TrimSpace(args.Query) == "" && len(args.Files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: ask requires a question")
		fmt.Fprintln(os.Stderr, `Usage: multichat ask "question" [file...]`)
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

	client, err := provider.New(provider.Config{
		Kind:    provider.Kind(cfg.Provider.Kind),
		Model:   cfg.Provider.Model,
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Configure a provider in ~/.multichat/config.toml or via MULTICHAT_* environment variables.")
		return 1
	}

	atts, failures := ingestFiles(cfg, args.Files)
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", f)
	}
	if len(args.Files) > 0 && len(atts) == 0 && strings.TrimSpace(args.Query) == "" {
		fmt.Fprintln(os.Stderr, "Error: no usable attachments and no question")
		return 1
	}

	custom := ""
	if cfg.Prompt.CustomEnabled {
		custom = cfg.Prompt.CustomInstruction
	}
	assembler := prompt.Assembler{HistoryWindow: cfg.Prompt.HistoryWindow}
	assembled := assembler.Assemble(prompt.Request{
		Mode:              prompt.ModeNormal,
		CustomInstruction: custom,
		Text:              args.Query,
		Attachments:       atts,
	})

	ctx, cancel := context.WithTimeout(context.Background(), provider.DefaultTimeout)
	defer cancel()

	reply, err := client.Send(ctx, assembled.Instruction, atts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println(renderReply(reply, args.Quiet))
	return 0
}

// ingestFiles runs the file arguments through the ingestion batch.
// Failures are reported per file; the rest of the batch survives.
func ingestFiles(cfg *config.Config, paths []string) ([]attachment.Attachment, []string) {
	if len(paths) == 0 {
		return nil, nil
	}

	ingestor := attachment.NewIngestor(document.NewProcessor()).
		WithMaxSize(int64(cfg.Attachments.MaxFileSizeMB) * 1024 * 1024)

	var atts []attachment.Attachment
	var failures []string
	for _, r := range ingestor.IngestPaths(paths) {
		if r.Err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", r.Name, r.Err))
			continue
		}
		atts = append(atts, *r.Attachment)
	}
	return atts, failures
}

// renderReply renders markdown for terminals unless quiet output is
// requested.
func renderReply(reply string, quiet bool) string {
	if quiet {
		return reply
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return reply
	}
	out, err := r.Render(reply)
	if err != nil {
		return reply
	}
	return strings.TrimSpace(out)
}
