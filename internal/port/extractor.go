package port

import "docrag/internal/domain"

// Extractor turns a raw file into a sequence of text segments carrying
// the file's source label. Tabular formats are paginated into fixed-size
// row batches before chunking.
type Extractor interface {
	Extract(path string) ([]domain.Document, error)
}

// FileWalker enumerates ingestable files under a root directory.
type FileWalker interface {
	Walk(root string) ([]string, error)
}
