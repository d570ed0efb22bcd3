package extractor

import (
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor pulls plain text out of PDF files page by page. Each page
// becomes its own paragraph so page breaks survive chunking.
type PDFExtractor struct {
	// MaxPages limits how many pages are read; 0 reads all.
	MaxPages int
}

func (*PDFExtractor) Name() string { return "pdf" }

func (*PDFExtractor) Extensions() []string { return []string{".pdf"} }

func (p *PDFExtractor) ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pages := r.NumPage()
	if p.MaxPages > 0 && p.MaxPages < pages {
		pages = p.MaxPages
	}

	var parts []string
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
