package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// Entry is a persisted chunk with its embedding vector. The entry ID is
// the chunk fingerprint, which makes upserts of duplicate content no-ops.
type Entry struct {
	ID     string
	Vector []float32
	Text   string
	Source string
}

// SearchHit is an entry returned from a nearest-neighbor search.
// Score is cosine similarity, higher is more similar, range [-1,1].
type SearchHit struct {
	Entry Entry
	Score float64
}

// VectorStore stores and searches embedded chunks.
type VectorStore interface {
	// Upsert adds or updates entries in the store.
	Upsert(entries []Entry) error

	// Search finds the k nearest entries to the query vector.
	Search(vector []float32, k int) ([]SearchHit, error)

	// DeleteBySource removes every entry tagged with the given source
	// label and returns the number of entries removed.
	DeleteBySource(source string) (int, error)

	// All returns every persisted entry. Used to rebuild the fingerprint
	// set on startup and after deletions.
	All() ([]Entry, error)

	// Count returns the number of entries in the store.
	Count() (int, error)

	Close() error
}
