package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docrag/internal/domain"
)

// MaxFileSize is a hard cap on files handed to the extractors.
const MaxFileSize = 50 * 1024 * 1024

// AllowedExtensions lists the ingestable file types.
var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".xlsx": true,
	".csv":  true,
	".docx": true,
}

// FileExtractor dispatches a file to the extractor for its declared type
// and labels every produced segment with the file's base name.
type FileExtractor struct {
	batchRows int
}

// NewFileExtractor creates an extractor. batchRows controls how many
// spreadsheet rows are grouped into one text segment.
func NewFileExtractor(batchRows int) *FileExtractor {
	if batchRows <= 0 {
		batchRows = 500
	}
	return &FileExtractor{batchRows: batchRows}
}

// Extract returns the text segments of the file, one or more per file
// depending on format: PDF pages, DOCX paragraphs, or spreadsheet row
// batches.
func (e *FileExtractor) Extract(path string) ([]domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	source := filepath.Base(path)
	if !AllowedExtensions[ext] {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("file too large (limit %d bytes): %s", MaxFileSize, path)
	}

	switch ext {
	case ".pdf":
		return extractPDF(path, source)
	case ".docx":
		return extractDOCX(path, source)
	case ".csv":
		return extractCSV(path, source, e.batchRows)
	case ".xlsx":
		return extractXLSX(path, source, e.batchRows)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

// Supported reports whether the path has an ingestable extension.
func Supported(path string) bool {
	return AllowedExtensions[strings.ToLower(filepath.Ext(path))]
}
