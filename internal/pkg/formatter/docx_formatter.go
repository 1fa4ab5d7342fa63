package formatter

import (
	"bytes"
	"strings"

	"github.com/fumiama/go-docx"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"

	docxTitleSize = "32" // half-points
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (df *DOCXFormatter) Format(t *Transcript) ([]byte, error) {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().AddText(t.Title()).Bold().Size(docxTitleSize)

	for _, turn := range t.Turns {
		doc.AddParagraph().AddText(t.Speaker(turn) + ":").Bold()
		// line breaks inside the text become w:br in the same run
		doc.AddParagraph().AddText(strings.TrimSpace(turn.Content))
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (df *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (df *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
