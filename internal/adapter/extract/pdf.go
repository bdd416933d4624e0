package extract

import (
	"fmt"
	"strings"

	"github.com/dslipak/pdf"

	"docrag/internal/domain"
)

// extractPDF reads a PDF page by page. Each page becomes one document
// segment carrying the file's source label.
func extractPDF(path, source string) ([]domain.Document, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	var docs []domain.Document
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, domain.Document{Text: text, Source: source})
	}

	return docs, nil
}
