// Package extract converts uploaded course documents into a single
// normalized text stream suitable for chunking.
//
// Supported formats: PDF, DOCX, TXT, MD. Extraction is a pure transform:
// it reads bytes, never touches storage.
package extract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat indicates a file extension the extractor cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// supportedExtensions are the file types the ingestion pipeline accepts.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
}

// Supported reports whether the given extension (with leading dot,
// case-insensitive) can be extracted.
func Supported(ext string) bool {
	return supportedExtensions[strings.ToLower(ext)]
}

// Extract converts raw file bytes into normalized text.
// The extension decides the parser; unsupported extensions fail before any
// processing begins.
func Extract(data []byte, ext string) (string, error) {
	ext = strings.ToLower(ext)
	if !supportedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	var text string
	var err error

	switch ext {
	case ".txt", ".md":
		text = string(data)
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	}
	if err != nil {
		return "", err
	}

	return Normalize(text), nil
}
