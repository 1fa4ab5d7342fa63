// Package extractor turns uploaded documents into plain text.
package extractor

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
	"github.com/twinlyai/bot-backend/internal/entity"
)

const (
	ExtPDF  = ".pdf"
	ExtDOCX = ".docx"
	ExtTXT  = ".txt"
	ExtJSON = ".json"
)

// SupportedExtensions lists the document types Extract understands
var SupportedExtensions = []string{ExtPDF, ExtDOCX, ExtTXT, ExtJSON}

// UnsupportedFileTypeError is returned for an extension Extract does not handle.
// It matches entity.ErrUnsupportedFileType with errors.Is.
type UnsupportedFileTypeError struct {
	Ext string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %q (allowed: pdf, docx, txt, json)", e.Ext)
}

func (e *UnsupportedFileTypeError) Is(target error) bool {
	return target == entity.ErrUnsupportedFileType
}

// IsSupported reports whether ext (with the leading dot) can be extracted
func IsSupported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// Extract reads the file at path and renders it as plain text according to ext
func Extract(path, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ExtPDF:
		return extractPDF(path)
	case ExtDOCX:
		return extractDOCX(path)
	case ExtTXT:
		return extractTXT(path)
	case ExtJSON:
		return extractJSON(path)
	default:
		return "", &UnsupportedFileTypeError{Ext: ext}
	}
}

// extractPDF joins the text of every page, pages without text are skipped
func extractPDF(path string) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: read pdf: %v", entity.ErrExtractionFailed, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", entity.ErrExtractionFailed, err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, pageText)
	}

	return strings.Join(pages, "\n"), nil
}

// extractDOCX joins paragraph texts in document order, one paragraph per line.
// Tables and section properties are skipped.
func extractDOCX(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open docx: %w", entity.ErrExtractionFailed, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: stat docx: %w", entity.ErrExtractionFailed, err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("%w: parse docx: %w", entity.ErrExtractionFailed, err)
	}

	lines := make([]string, 0, len(doc.Document.Body.Items))
	for _, item := range doc.Document.Body.Items {
		if p, ok := item.(*docx.Paragraph); ok {
			lines = append(lines, p.String())
		}
	}

	return strings.Join(lines, "\n"), nil
}

func extractTXT(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read text file: %w", entity.ErrExtractionFailed, err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text file is not valid UTF-8", entity.ErrExtractionFailed)
	}

	return string(data), nil
}

func extractJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read json file: %w", entity.ErrExtractionFailed, err)
	}

	text, err := RenderJSON(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", entity.ErrExtractionFailed, err)
	}

	return text, nil
}
