// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Ingestion error values.
var (
	// ErrFileTooLarge indicates a file exceeded MaxFileSize. The error is
	// local to the offending file and never fatal to a batch.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// =============================================================================
// INGESTOR
// =============================================================================

// DocumentProcessor converts a non-image file into extracted text and,
// for multi-page documents, rendered page records.
type DocumentProcessor interface {
	Process(name string, data []byte) (fullText string, pages []DocumentPage, err error)
}

// File is one file selected for ingestion.
type File struct {
	// Name is the file name, used for extension routing.
	Name string

	// MIMEType is the declared type. When empty it is detected from the
	// extension and content.
	MIMEType string

	// Data is the raw file content.
	Data []byte
}

// Result is the outcome of ingesting a single file. Exactly one of
// Attachment and Err is set.
type Result struct {
	Name       string
	Attachment *Attachment
	Err        error
}

// Ingestor turns selected files into attachments.
type Ingestor struct {
	processor DocumentProcessor
	maxSize   int64
}

// NewIngestor creates an ingestor backed by the given document processor.
func NewIngestor(processor DocumentProcessor) *Ingestor {
	return &Ingestor{
		processor: processor,
		maxSize:   MaxFileSize,
	}
}

// WithMaxSize overrides the per-file size ceiling.
func (in *Ingestor) WithMaxSize(n int64) *Ingestor {
	in.maxSize = n
	return in
}

// Ingest converts a single file into an attachment.
//
// Oversized files fail with ErrFileTooLarge before any processing. Images
// (any image/* MIME type, regardless of extension) become base64 payloads;
// everything else is routed to the document processor.
func (in *Ingestor) Ingest(file File) (*Attachment, error) {
	if int64(len(file.Data)) > in.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)",
			ErrFileTooLarge, file.Name, len(file.Data), in.maxSize)
	}

	mimeType := file.MIMEType
	if mimeType == "" {
		mimeType = detectMIMEType(file.Name, file.Data)
	}

	att := New(file.Name, mimeType, int64(len(file.Data)))

	if strings.HasPrefix(mimeType, "image/") {
		att.Content = base64.StdEncoding.EncodeToString(file.Data)
		return att, nil
	}

	fullText, pages, err := in.processor.Process(file.Name, file.Data)
	if err != nil {
		return nil, err
	}
	att.Content = fullText
	att.Pages = pages
	return att, nil
}

// IngestBatch ingests files concurrently, one goroutine per file, and
// returns results in completion order. Completion order need not match
// selection order. Each file's failure is isolated: a failed file yields a
// Result with Err set while the rest of the batch proceeds.
func (in *Ingestor) IngestBatch(files []File) []Result {
	if len(files) == 0 {
		return nil
	}

	ch := make(chan Result, len(files))
	for _, f := range files {
		go func(f File) {
			att, err := in.Ingest(f)
			ch <- Result{Name: f.Name, Attachment: att, Err: err}
		}(f)
	}

	results := make([]Result, 0, len(files))
	for range files {
		results = append(results, <-ch)
	}
	return results
}

// IngestPaths reads and ingests files from disk concurrently, one
// goroutine per path, returning results in completion order. Result.Name
// holds the path as given so failures can be reported against it.
func (in *Ingestor) IngestPaths(paths []string) []Result {
	if len(paths) == 0 {
		return nil
	}

	ch := make(chan Result, len(paths))
	for _, path := range paths {
		go func(path string) {
			att, err := in.IngestPath(path)
			ch <- Result{Name: path, Attachment: att, Err: err}
		}(path)
	}

	results := make([]Result, 0, len(paths))
	for range paths {
		results = append(results, <-ch)
	}
	return results
}

// IngestPath reads a file from disk and ingests it.
func (in *Ingestor) IngestPath(path string) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	// Reject before reading so an oversized file never lands in memory.
	if info.Size() > in.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)",
			ErrFileTooLarge, filepath.Base(path), info.Size(), in.maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return in.Ingest(File{Name: filepath.Base(path), Data: data})
}

// detectMIMEType resolves a MIME type from the extension, falling back to
// content sniffing for extensionless or unknown files.
func detectMIMEType(name string, data []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		// Strip any parameters (e.g. "; charset=utf-8").
		if i := strings.Index(byExt, ";"); i >= 0 {
			byExt = byExt[:i]
		}
		return byExt
	}
	return http.DetectContentType(data)
}
