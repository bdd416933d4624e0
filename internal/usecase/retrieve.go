package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"docrag/internal/adapter/cache"
	"docrag/internal/domain"
	"docrag/internal/port"
)

// corrections is a fixed table of known query typos, applied after
// lowercasing. Whole-query matches only.
var corrections = map[string]string{
	"safty":     "safety",
	"maintanance": "maintenance",
	"inspecton": "inspection",
	"complience": "compliance",
}

// RetrieveUseCase runs nearest-neighbor retrieval, normalizes scores to
// [0,1], optionally reranks with a cross-encoder style scorer, and maps
// scores to relevancy tiers. It also hosts the adaptive expansion loop.
type RetrieveUseCase struct {
	index    *IndexUseCase
	reranker port.Reranker // nil disables reranking
	oracle   port.LLM      // nil disables adaptive expansion
	cache    *cache.QueryCache
	minScore float64
	logger   *slog.Logger
}

// NewRetrieveUseCase creates a retrieve use case. reranker and oracle
// may be nil; queryCache may be nil to disable caching.
func NewRetrieveUseCase(
	index *IndexUseCase,
	reranker port.Reranker,
	oracle port.LLM,
	queryCache *cache.QueryCache,
	minScore float64,
	logger *slog.Logger,
) *RetrieveUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveUseCase{
		index:    index,
		reranker: reranker,
		oracle:   oracle,
		cache:    queryCache,
		minScore: minScore,
		logger:   logger,
	}
}

// Search retrieves up to k results for the query, ranked by rerank score
// when a reranker is configured, otherwise by normalized similarity.
// An error distinguishes a backend failure from an empty match set.
func (u *RetrieveUseCase) Search(ctx context.Context, query string, k int) ([]domain.ScoredResult, error) {
	normalized := normalizeQuery(query)
	if normalized == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	if u.cache != nil {
		if cached, ok := u.cache.Get(normalized, k); ok {
			return cached, nil
		}
	}

	hits, err := u.index.Query(ctx, normalized, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	results := make([]domain.ScoredResult, len(hits))
	for i, h := range hits {
		norm := normalizeScore(h.Score)
		results[i] = domain.ScoredResult{
			Chunk: domain.Chunk{
				Text:        h.Entry.Text,
				Source:      h.Entry.Source,
				Fingerprint: h.Entry.ID,
			},
			RawScore:  h.Score,
			NormScore: norm,
			Tier:      domain.TierFor(norm),
		}
	}

	if u.reranker != nil {
		if err := u.rerank(ctx, normalized, results); err != nil {
			return nil, fmt.Errorf("reranking failed: %w", err)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].OrderingScore() > results[j].OrderingScore()
	})

	if u.minScore > 0 {
		results = filterByThreshold(results, u.minScore)
	}

	if u.cache != nil {
		u.cache.Put(normalized, k, results)
	}
	return results, nil
}

// rerank scores each (query, chunk text) pair in place. The rerank score
// replaces the similarity score as the ordering key outright.
func (u *RetrieveUseCase) rerank(ctx context.Context, query string, results []domain.ScoredResult) error {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}

	scores, err := u.reranker.Score(ctx, query, texts)
	if err != nil {
		return err
	}
	if len(scores) != len(results) {
		return fmt.Errorf("reranker returned %d scores for %d results", len(scores), len(results))
	}

	for i := range results {
		results[i].RerankScore = scores[i]
		results[i].Reranked = true
	}
	return nil
}

// Expand widens the result set step by step, consulting the LLM oracle
// on whether the lowest-ranked held result is still relevant. Stops when
// the oracle answers no, on oracle error (fail-safe: keep what is held),
// when a re-search yields no new rows, or when maxK is reached. Oracle
// cost is bounded by (maxK-initialK)/step calls.
func (u *RetrieveUseCase) Expand(ctx context.Context, query string, initialK, step, maxK int) ([]domain.ScoredResult, error) {
	if initialK <= 0 {
		initialK = 5
	}
	if step <= 0 {
		step = 5
	}
	if maxK < initialK {
		maxK = initialK
	}

	held, err := u.Search(ctx, query, initialK)
	if err != nil {
		return nil, err
	}

	currentK := initialK
	for currentK < maxK && len(held) > 0 {
		marginal := held[len(held)-1]

		relevant, err := u.askOracle(ctx, query, marginal)
		if err != nil {
			u.logger.Warn("relevance oracle failed, stopping expansion", "error", err)
			return held, nil
		}
		if !relevant {
			return held, nil
		}

		nextK := currentK + step
		if nextK > maxK {
			nextK = maxK
		}

		wider, err := u.Search(ctx, query, nextK)
		if err != nil {
			u.logger.Warn("expansion re-search failed, keeping held results", "error", err)
			return held, nil
		}
		if len(wider) <= len(held) {
			// No new rows beyond the current set: the index is exhausted.
			return wider, nil
		}

		held = wider
		currentK = nextK
	}

	return held, nil
}

// askOracle asks whether the marginal result is still relevant to the
// query. Any answer beginning with "no" (case-insensitive) stops the
// expansion.
func (u *RetrieveUseCase) askOracle(ctx context.Context, query string, marginal domain.ScoredResult) (bool, error) {
	if u.oracle == nil {
		return false, fmt.Errorf("no relevance oracle configured")
	}

	prompt := fmt.Sprintf(
		"Query: %s\n\n"+
			"Additional results (key summary information):\n%s\n\n"+
			"Are these additional results relevant enough to include? Answer 'Yes' if they add relevant "+
			"information to the query, or 'No' if they do not. Avoid using any other words rather than yes or, no.",
		query, marginal.Chunk.Text,
	)

	answer, err := u.oracle.Chat(ctx, "evaluating topic relevance", prompt)
	if err != nil {
		return false, err
	}

	return !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "no"), nil
}

// normalizeQuery lowercases, trims, and applies the known-typo table.
func normalizeQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if corrected, ok := corrections[q]; ok {
		return corrected
	}
	return q
}

// normalizeScore rescales a cosine similarity from [-1,1] to [0,1],
// clamped to the range.
func normalizeScore(score float64) float64 {
	norm := (score + 1) / 2
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}

// filterByThreshold removes results below the normalized-score floor.
func filterByThreshold(results []domain.ScoredResult, minScore float64) []domain.ScoredResult {
	filtered := make([]domain.ScoredResult, 0, len(results))
	for _, r := range results {
		if r.NormScore >= minScore {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
