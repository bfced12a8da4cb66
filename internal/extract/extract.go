// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extract turns a document on disk into plain text plus metadata.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// Default limits.
const (
	DefaultMaxFileSize = 100 * 1024 * 1024
	DefaultMaxPages    = 500
)

// ErrUnsupported is returned for file types no extractor handles.
var ErrUnsupported = errors.New("unsupported file type")

// Document is the extracted text and metadata of one file.
type Document struct {
	Name       string
	Type       string
	SizeBytes  int64
	Pages      int
	Properties map[string]string
	Text       string
}

// CharCount returns the number of characters in the extracted text.
func (d *Document) CharCount() int {
	return utf8.RuneCountInString(d.Text)
}

type extractFunc func(e *Extractor, path string, doc *Document) error

var byExtension = map[string]extractFunc{
	".txt":  extractPlainText,
	".csv":  extractPlainText,
	".md":   extractPlainText,
	".log":  extractPlainText,
	".json": extractPlainText,
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".pptx": extractPPTX,
	".xlsx": extractXLSX,
	".hwpx": extractHWPX,
	".hwp":  extractHWP,
	".doc":  extractDOC,
	".ppt":  extractPPT,
	".jpg":  extractImage,
	".jpeg": extractImage,
	".tif":  extractImage,
	".tiff": extractImage,
}

var mimeTypes = map[string]string{
	".txt":  "text/plain",
	".csv":  "text/csv",
	".md":   "text/markdown",
	".log":  "text/plain",
	".json": "application/json",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".hwpx": "application/hwp+zip",
	".hwp":  "application/x-hwp",
	".doc":  "application/msword",
	".ppt":  "application/vnd.ms-powerpoint",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// Supported reports whether name has an extension Extract handles.
func Supported(name string) bool {
	_, ok := byExtension[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extensions lists the supported extensions in sorted order.
func Extensions() []string {
	exts := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extractor reads documents. The zero value is not usable; call New.
type Extractor struct {
	MaxFileSize int64
	MaxPages    int
	Logger      *slog.Logger
}

// New returns an Extractor with the default limits.
func New() *Extractor {
	return &Extractor{
		MaxFileSize: DefaultMaxFileSize,
		MaxPages:    DefaultMaxPages,
		Logger:      slog.Default(),
	}
}

// Extract reads the file at path.
func (e *Extractor) Extract(path string) (*Document, error) {
	return e.ExtractNamed(path, filepath.Base(path))
}

// ExtractNamed reads the file at path and reports it under name. The
// extension of name selects the extractor, so uploads stored under a
// temporary path keep their original type.
func (e *Extractor) ExtractNamed(path, name string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	fn, ok := byExtension[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if e.MaxFileSize > 0 && info.Size() > e.MaxFileSize {
		return nil, fmt.Errorf("file size %d exceeds limit %d", info.Size(), e.MaxFileSize)
	}

	doc := &Document{
		Name:       name,
		Type:       mimeTypes[ext],
		SizeBytes:  info.Size(),
		Properties: make(map[string]string),
	}
	if err := fn(e, path, doc); err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", name, err)
	}
	doc.Text = cleanText(doc.Text)
	return doc, nil
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// cleanText trims each line, collapses runs of spaces and drops blank lines.
func cleanText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(strings.ReplaceAll(line, "\t", " ")), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
