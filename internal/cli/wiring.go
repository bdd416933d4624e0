package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"docrag/config"
	"docrag/internal/adapter/cache"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/llm"
	"docrag/internal/adapter/rerank"
	"docrag/internal/adapter/store"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

// openIndex opens the vector store and wraps it in the deduplicating
// index. The caller must Close the returned store.
func openIndex(cfg *config.Config) (*usecase.IndexUseCase, *store.BoltStore, error) {
	embedder, err := embedding.NewOpenAIEmbedder(embedding.Config{
		APIKeyEnv: cfg.Embedding.APIKeyEnv,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
		BatchSize: cfg.Embedding.BatchSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	dbPath := cfg.StorePath(rootDir)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	st, err := store.NewBoltStore(dbPath, embedder.Dimension())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index store: %w", err)
	}

	index, err := usecase.NewIndexUseCase(embedder, st, cfg.Ingest.BatchSize, slog.Default())
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return index, st, nil
}

// buildReranker creates the configured reranker, or nil for "none".
func buildReranker(cfg *config.Config) (port.Reranker, error) {
	switch cfg.Rerank.Provider {
	case "cohere":
		return rerank.NewCohereReranker(cfg.Rerank.APIKeyEnv, cfg.Rerank.Model)
	case "overlap":
		return rerank.NewOverlapReranker(), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported rerank provider: %s", cfg.Rerank.Provider)
	}
}

// buildLLM creates the chat model client used by the relevance oracle
// and the report pipeline.
func buildLLM(cfg *config.Config) (port.LLM, error) {
	return llm.NewOpenAIChat(llm.Config{
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
	})
}

// buildRetrieve assembles the retrieve use case. oracle may be nil when
// the calling command never expands.
func buildRetrieve(cfg *config.Config, index *usecase.IndexUseCase, oracle port.LLM) (*usecase.RetrieveUseCase, error) {
	reranker, err := buildReranker(cfg)
	if err != nil {
		return nil, err
	}

	var qc *cache.QueryCache
	if cfg.Retrieve.CacheSize > 0 {
		qc = cache.NewQueryCache(cfg.Retrieve.CacheSize, time.Duration(cfg.Retrieve.CacheTTLSecs)*time.Second)
		index.AttachCache(qc)
	}

	return usecase.NewRetrieveUseCase(index, reranker, oracle, qc, cfg.Retrieve.MinScore, slog.Default()), nil
}

// requireIndex fails fast when no index database exists yet.
func requireIndex(cfg *config.Config) error {
	if _, err := os.Stat(cfg.StorePath(rootDir)); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'docrag ingest' first")
	}
	return nil
}
