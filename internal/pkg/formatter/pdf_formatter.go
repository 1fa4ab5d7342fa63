package formatter

import (
	"bytes"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	// pdfFontName is the family name of the UTF-8 font registered with gofpdf
	pdfFontName = "DejaVuSans"

	// Where the TTF font may live: next to the binary in the container, or in the source tree
	pdfFontRuntimePath = "ttf/DejaVuSans.ttf"
	pdfFontSourcePath  = "internal/pkg/formatter/ttf/DejaVuSans.ttf"
)

type PDFFormatter struct{}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{}
}

func resolveFontPath() string {
	for _, path := range []string{pdfFontRuntimePath, pdfFontSourcePath} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (pf *PDFFormatter) Format(t *Transcript) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Without the bundled font the core Helvetica is used, it covers cp1252 only
	fontName := "Helvetica"
	encode := pdf.UnicodeTranslatorFromDescriptor("")
	if fontPath := resolveFontPath(); fontPath != "" {
		pdf.AddUTF8Font(pdfFontName, "", fontPath)
		pdf.AddUTF8Font(pdfFontName, "B", fontPath)
		fontName = pdfFontName
		encode = func(s string) string { return s }
	}

	pdf.SetFont(fontName, "B", 18)
	pdf.Cell(0, 10, encode(t.Title()))
	pdf.Ln(14)

	for _, turn := range t.Turns {
		pdf.SetFont(fontName, "B", 12)
		pdf.Cell(0, 6, encode(t.Speaker(turn)+":"))
		pdf.Ln(7)

		pdf.SetFont(fontName, "", 11)
		_, lineHeight := pdf.GetFontSize()
		pdf.MultiCell(0, lineHeight*1.5, encode(strings.TrimSpace(turn.Content)), "", "", false)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (pf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (pf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
