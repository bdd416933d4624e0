package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"docrag/internal/adapter/cache"
	"docrag/internal/domain"
	"docrag/internal/port"
)

// IndexUseCase owns the embedding store and deduplicates ingestion by
// content fingerprint. All mutating operations are serialized by one
// mutex so the fingerprint set and the store cannot drift under
// concurrent add/delete.
type IndexUseCase struct {
	embedder  port.Embedder
	store     port.VectorStore
	batchSize int
	logger    *slog.Logger

	mu           sync.Mutex
	fingerprints map[string]struct{}
	cache        *cache.QueryCache
}

// NewIndexUseCase opens the index over the given store, rebuilding the
// fingerprint set from every persisted entry.
func NewIndexUseCase(embedder port.Embedder, store port.VectorStore, batchSize int, logger *slog.Logger) (*IndexUseCase, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	u := &IndexUseCase{
		embedder:     embedder,
		store:        store,
		batchSize:    batchSize,
		logger:       logger,
		fingerprints: make(map[string]struct{}),
	}
	if err := u.rebuildFingerprints(); err != nil {
		return nil, fmt.Errorf("failed to rebuild fingerprint set: %w", err)
	}
	return u, nil
}

// AttachCache registers a query cache to invalidate whenever the index
// mutates, so stale ranked results are never served after an add or
// delete.
func (u *IndexUseCase) AttachCache(qc *cache.QueryCache) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cache = qc
}

func (u *IndexUseCase) invalidateCache() {
	if u.cache != nil {
		u.cache.Invalidate()
	}
}

// rebuildFingerprints rescans all persisted entries. Rescanning, rather
// than subtracting, guards against drift between the set and the store.
// Caller must hold mu (or be the constructor).
func (u *IndexUseCase) rebuildFingerprints() error {
	entries, err := u.store.All()
	if err != nil {
		return err
	}
	fps := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		fps[e.ID] = struct{}{}
	}
	u.fingerprints = fps
	return nil
}

// Add embeds and inserts the chunks whose fingerprints are not yet in
// the index; duplicates are silently skipped. Returns the number of
// chunks considered (not the number inserted). An embedding failure
// aborts the failing batch; batches already committed stay committed.
func (u *IndexUseCase) Add(ctx context.Context, chunks []domain.Chunk) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	considered := len(chunks)

	novel := make([]domain.Chunk, 0, len(chunks))
	seen := make(map[string]struct{})
	for _, c := range chunks {
		if _, dup := u.fingerprints[c.Fingerprint]; dup {
			continue
		}
		if _, dup := seen[c.Fingerprint]; dup {
			continue
		}
		seen[c.Fingerprint] = struct{}{}
		novel = append(novel, c)
	}

	if len(novel) == 0 {
		u.logger.Debug("all chunks are duplicates, nothing to embed", "considered", considered)
		return considered, nil
	}

	for start := 0; start < len(novel); start += u.batchSize {
		end := start + u.batchSize
		if end > len(novel) {
			end = len(novel)
		}
		batch := novel[start:end]

		if err := u.addBatch(ctx, batch); err != nil {
			if start > 0 {
				u.invalidateCache()
			}
			return considered, fmt.Errorf("failed to index batch starting at chunk %d: %w", start, err)
		}
	}

	u.invalidateCache()
	return considered, nil
}

func (u *IndexUseCase) addBatch(ctx context.Context, batch []domain.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
	}

	entries := make([]port.Entry, len(batch))
	for i, c := range batch {
		entries[i] = port.Entry{
			ID:     c.Fingerprint,
			Vector: vectors[i],
			Text:   c.Text,
			Source: c.Source,
		}
	}
	if err := u.store.Upsert(entries); err != nil {
		return fmt.Errorf("store upsert failed: %w", err)
	}

	// Fingerprints are recorded only after the batch is committed, so
	// a failed batch can be retried.
	for _, c := range batch {
		u.fingerprints[c.Fingerprint] = struct{}{}
	}
	return nil
}

// Query embeds the query text and returns up to k nearest entries with
// raw cosine similarity scores.
func (u *IndexUseCase) Query(ctx context.Context, text string, k int) ([]port.SearchHit, error) {
	vectors, err := u.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	hits, err := u.store.Search(vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return hits, nil
}

// DeleteSource removes every entry tagged with the source label and
// rebuilds the fingerprint set from the remaining persisted entries.
// Deleting an unknown source is a no-op, not a failure.
func (u *IndexUseCase) DeleteSource(source string) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	removed, err := u.store.DeleteBySource(source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete source %q: %w", source, err)
	}

	if err := u.rebuildFingerprints(); err != nil {
		return removed, fmt.Errorf("failed to rebuild fingerprint set: %w", err)
	}
	if removed > 0 {
		u.invalidateCache()
	}

	u.logger.Info("deleted source from index", "source", source, "entries_removed", removed)
	return removed, nil
}

// Count returns the number of entries in the index.
func (u *IndexUseCase) Count() (int, error) {
	return u.store.Count()
}

// Sources returns the distinct source labels currently indexed.
func (u *IndexUseCase) Sources() ([]string, error) {
	entries, err := u.store.All()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var sources []string
	for _, e := range entries {
		if _, ok := seen[e.Source]; ok {
			continue
		}
		seen[e.Source] = struct{}{}
		sources = append(sources, e.Source)
	}
	return sources, nil
}
