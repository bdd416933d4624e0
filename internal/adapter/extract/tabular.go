package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"docrag/internal/domain"
)

// extractCSV reads a CSV file and paginates its rows into fixed-size
// batches, each rendered as a text table segment.
func extractCSV(path, source string, batchRows int) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return batchRowDocuments(rows, source, batchRows), nil
}

// extractXLSX reads the first sheet of a workbook and paginates its rows
// into fixed-size batches.
func extractXLSX(path, source string, batchRows int) ([]domain.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return batchRowDocuments(rows, source, batchRows), nil
}

// batchRowDocuments groups rows into batches of batchRows and renders
// each batch as one tab-separated text segment.
func batchRowDocuments(rows [][]string, source string, batchRows int) []domain.Document {
	var docs []domain.Document
	for i := 0; i < len(rows); i += batchRows {
		end := i + batchRows
		if end > len(rows) {
			end = len(rows)
		}

		var b strings.Builder
		for _, row := range rows[i:end] {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if b.Len() == 0 {
			continue
		}
		docs = append(docs, domain.Document{Text: b.String(), Source: source})
	}
	return docs
}
