package port

import "docrag/internal/domain"

// Chunker splits extracted documents into bounded, overlapping chunks.
type Chunker interface {
	Chunk(docs []domain.Document) []domain.Chunk
}
