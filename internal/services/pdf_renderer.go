package services

import (
	"github.com/go-pdf/fpdf"
	"os"
	"path/filepath"
	"strings"
)

type PDFRenderer struct {
	fontSize   float64
	lineHeight float64
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{fontSize: 11, lineHeight: 6}
}

// Render writes the text as an A4 document, one block per paragraph.
func (r *PDFRenderer) Render(text string, path string) error {

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", r.fontSize)

	// core fonts are cp1252
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	for _, paragraph := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		pdf.MultiCell(0, r.lineHeight, translate(paragraph), "", "L", false)
		pdf.Ln(r.lineHeight)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}
