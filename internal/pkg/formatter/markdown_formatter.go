package formatter

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(t *Transcript) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", t.Title())
	for _, turn := range t.Turns {
		fmt.Fprintf(&buf, "\n**%s:**\n\n%s\n", t.Speaker(turn), strings.TrimSpace(turn.Content))
	}
	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
