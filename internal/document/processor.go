// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document converts uploaded files into normalized attachment
// payloads: identity text extraction for recognized text/code files, and
// page-by-page rasterization plus text extraction for PDFs.
//
// PDFs are rasterized per page rather than forwarded as a binary blob
// because the downstream providers accept only images and text for
// multimodal input, not arbitrary document formats.
package document

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/jeranaias/multichat-tui/internal/attachment"
)

// Processing error values.
var (
	// ErrUnsupportedType indicates a file extension outside the supported
	// set. Local and recoverable: callers skip the file and continue.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// renderDPI is the fixed raster resolution for PDF pages. 144 DPI is a 2x
// upscale over the 72 DPI PDF point grid, balancing legibility of small
// text and diagrams against request payload size.
const renderDPI = 144

// textExtensions is the set of extensions treated as plain text.
var textExtensions = map[string]bool{
	"txt":  true,
	"md":   true,
	"json": true,
	"js":   true,
	"jsx":  true,
	"ts":   true,
	"tsx":  true,
	"py":   true,
	"html": true,
	"css":  true,
	"xml":  true,
	"csv":  true,
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Processor converts file contents into text and page records.
// The zero value is not usable; construct with NewProcessor.
type Processor struct {
	dpi float64
}

// NewProcessor creates a document processor with the default render scale.
func NewProcessor() *Processor {
	return &Processor{dpi: renderDPI}
}

// Process converts a file into extracted text and, for PDFs, rendered page
// records.
//
// For recognized text extensions the result is the identity transform: the
// returned text equals the decoded file content. For PDFs each page yields
// one DocumentPage with a base64 PNG render and the page's text layer, and
// the full text concatenates every page's text labeled by page number.
// Unsupported extensions fail with ErrUnsupportedType naming the extension.
func (p *Processor) Process(name string, data []byte) (string, []attachment.DocumentPage, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))

	switch {
	case ext == "pdf":
		return p.processPDF(data)
	case textExtensions[ext]:
		return string(data), nil, nil
	default:
		return "", nil, fmt.Errorf("%w: .%s", ErrUnsupportedType, ext)
	}
}

// processPDF renders every page at the fixed scale and extracts its text
// layer. Page records are emitted in source order, numbered 1..N.
func (p *Processor) processPDF(data []byte) (string, []attachment.DocumentPage, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	pages := make([]attachment.DocumentPage, 0, numPages)
	var fullText strings.Builder

	for i := 0; i < numPages; i++ {
		img, err := doc.ImageDPI(i, p.dpi)
		if err != nil {
			return "", nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", nil, fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}

		text, err := doc.Text(i)
		if err != nil {
			return "", nil, fmt.Errorf("failed to extract text from page %d: %w", i+1, err)
		}
		text = strings.TrimSpace(text)

		pages = append(pages, attachment.DocumentPage{
			PageNumber: i + 1,
			Image:      base64.StdEncoding.EncodeToString(buf.Bytes()),
			Text:       text,
		})

		fmt.Fprintf(&fullText, "--- Page %d ---\n%s\n\n", i+1, text)
	}

	return strings.TrimSpace(fullText.String()), pages, nil
}

// Supported reports whether the file name's extension can be processed.
// Image files are handled upstream by ingestion and are not part of this
// set.
func Supported(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return ext == "pdf" || textExtensions[ext]
}

// SupportedExtensions returns the recognized extensions, PDF first.
func SupportedExtensions() []string {
	exts := []string{"pdf"}
	for ext := range textExtensions {
		exts = append(exts, ext)
	}
	return exts
}
