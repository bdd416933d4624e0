package port

import "context"

// LLM represents a language model used for the report pipeline stages,
// per-file summarization and the expansion relevance oracle.
type LLM interface {
	// Chat sends a single-turn request. The role describes the assistant's
	// specialization and is folded into the system prompt.
	Chat(ctx context.Context, role, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// Reranker scores query-document pairs for relevance.
type Reranker interface {
	// Score returns one relevance score per document, aligned with the
	// input order. Higher is more relevant; the range is model-defined.
	Score(ctx context.Context, query string, documents []string) ([]float64, error)

	// ModelName returns the name of the reranking model.
	ModelName() string
}
