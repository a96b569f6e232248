// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachment defines the normalized representation of user-supplied
// files and the ingestion pipeline that produces it.
//
// An Attachment carries exactly one primary payload: base64 image data,
// extracted document text, or a sequence of rendered PDF pages. Ingestion
// validates size, routes each file to image handling or the document
// processor, and isolates per-file failures so one bad file never aborts
// the rest of a batch.
package attachment

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxFileSize is the hard per-file ceiling enforced before any processing.
const MaxFileSize = 10 * 1024 * 1024 // 10MB

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Attachment is a normalized user-uploaded file ready for prompt assembly.
type Attachment struct {
	// ID is an opaque unique identifier assigned at ingestion time.
	ID string `json:"id"`

	// Name is the original file name.
	Name string `json:"name"`

	// MIMEType is the declared or detected MIME type.
	MIMEType string `json:"mime_type"`

	// SizeBytes is the original file size.
	SizeBytes int64 `json:"size_bytes"`

	// Content holds the primary payload for single-payload attachments:
	// base64-encoded binary data for images, extracted text for documents.
	Content string `json:"content"`

	// Pages is present only when the source was a multi-page document (PDF).
	// When set, Content holds the page-labeled full text and Pages carry the
	// rendered images.
	Pages []DocumentPage `json:"pages,omitempty"`

	// CreatedAt records when the file was ingested.
	CreatedAt time.Time `json:"created_at"`
}

// DocumentPage is one rasterized PDF page plus its extracted text layer.
type DocumentPage struct {
	// PageNumber is 1-based and matches source document order.
	PageNumber int `json:"page_number"`

	// Image is the rendered page encoded as base64 PNG.
	Image string `json:"image"`

	// Text is the extracted text layer for this page. May be empty for
	// scanned or image-only pages.
	Text string `json:"text"`
}

// New creates an attachment shell with a fresh ID and timestamp.
// The caller fills in the payload fields.
func New(name, mimeType string, size int64) *Attachment {
	return &Attachment{
		ID:        uuid.New().String(),
		Name:      name,
		MIMEType:  mimeType,
		SizeBytes: size,
		CreatedAt: time.Now(),
	}
}

// IsImage reports whether the attachment carries a binary image payload.
// Any image MIME type qualifies, independent of file extension.
func (a *Attachment) IsImage() bool {
	return strings.HasPrefix(a.MIMEType, "image/")
}

// HasPages reports whether the attachment carries rendered document pages.
func (a *Attachment) HasPages() bool {
	return len(a.Pages) > 0
}

// IsTextBearing reports whether the attachment's text should be inlined
// into the assembled instruction. Image payloads are never inlined; plain
// documents and the text layer of PDFs are.
func (a *Attachment) IsTextBearing() bool {
	return !a.IsImage()
}

// Meta is the persistence- and transcript-friendly subset of an attachment.
type Meta struct {
	Name      string `json:"name"`
	MIMEType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// Metadata returns the attachment's provenance metadata.
func (a *Attachment) Metadata() Meta {
	return Meta{Name: a.Name, MIMEType: a.MIMEType, SizeBytes: a.SizeBytes}
}
