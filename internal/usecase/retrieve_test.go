package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"docrag/internal/adapter/cache"
	"docrag/internal/domain"
)

func seedIndex(t *testing.T, index *IndexUseCase, texts map[string]string) {
	t.Helper()
	var chunks []domain.Chunk
	for text, source := range texts {
		chunks = append(chunks, domain.NewChunk(text, source))
	}
	if _, err := index.Add(context.Background(), chunks); err != nil {
		t.Fatal(err)
	}
}

func TestNormalizeScore(t *testing.T) {
	cases := []struct {
		raw  float64
		want float64
	}{
		{-1, 0},
		{0, 0.5},
		{1, 1},
		{0.5, 0.75},
		{-1.5, 0},
		{1.5, 1},
	}
	for _, c := range cases {
		if got := normalizeScore(c.raw); got != c.want {
			t.Errorf("normalizeScore(%f) = %f, want %f", c.raw, got, c.want)
		}
	}

	// Monotonically increasing in the raw score.
	prev := -1.0
	for s := -1.0; s <= 1.0; s += 0.05 {
		n := normalizeScore(s)
		if n < normalizeScore(prev) {
			t.Fatalf("normalizeScore not monotonic at %f", s)
		}
		prev = s
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := normalizeQuery("  Safty "); got != "safety" {
		t.Errorf("expected typo correction, got %q", got)
	}
	if got := normalizeQuery("Crane Inspection"); got != "crane inspection" {
		t.Errorf("expected lowercased query, got %q", got)
	}
}

func TestSearchRanksAndTiers(t *testing.T) {
	index, _, _ := newTestIndex(t)
	seedIndex(t, index, map[string]string{
		"The crane hook was corroded during inspection.": "cranes.pdf",
		"Lunch menu includes soup and bread.":            "menu.csv",
	})

	u := NewRetrieveUseCase(index, nil, nil, nil, 0, nil)
	results, err := u.Search(context.Background(), "crane hook inspection", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}

	if results[0].Chunk.Source != "cranes.pdf" {
		t.Errorf("expected crane chunk ranked first, got %q", results[0].Chunk.Source)
	}
	for i := 1; i < len(results); i++ {
		if results[i].OrderingScore() > results[i-1].OrderingScore() {
			t.Error("results not sorted by descending score")
		}
	}
	for _, r := range results {
		if r.Tier != domain.TierFor(r.NormScore) {
			t.Errorf("tier %q inconsistent with normalized score %f", r.Tier, r.NormScore)
		}
		if r.NormScore < 0 || r.NormScore > 1 {
			t.Errorf("normalized score out of range: %f", r.NormScore)
		}
	}
}

func TestSearchRerankOverridesOrdering(t *testing.T) {
	index, _, _ := newTestIndex(t)
	seedIndex(t, index, map[string]string{
		"Crane crane crane crane.":        "similar.pdf",
		"Crane maintenance logs reviewed.": "logs.pdf",
	})

	// The reranker inverts the similarity preference.
	reranker := &stubReranker{scores: map[string]float64{
		"Crane crane crane crane.":        0.1,
		"Crane maintenance logs reviewed.": 0.9,
	}}

	u := NewRetrieveUseCase(index, reranker, nil, nil, 0, nil)
	results, err := u.Search(context.Background(), "crane", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.Source != "logs.pdf" {
		t.Errorf("expected rerank score to drive ordering, got %q first", results[0].Chunk.Source)
	}
	if !results[0].Reranked || results[0].RerankScore != 0.9 {
		t.Errorf("expected rerank score recorded, got %+v", results[0])
	}
	// Tiers still derive from normalized similarity, not rerank scores.
	if results[0].Tier != domain.TierFor(results[0].NormScore) {
		t.Error("tier should derive from the normalized similarity score")
	}
}

func TestSearchBackendFailureReturnsError(t *testing.T) {
	index, _, store := newTestIndex(t)
	seedIndex(t, index, map[string]string{"Some text.": "a.pdf"})
	store.failing = true

	u := NewRetrieveUseCase(index, nil, nil, nil, 0, nil)
	if _, err := u.Search(context.Background(), "text", 5); err == nil {
		t.Fatal("expected error on vector store failure")
	}
}

func TestSearchEmptyQueryRejected(t *testing.T) {
	index, _, _ := newTestIndex(t)
	u := NewRetrieveUseCase(index, nil, nil, nil, 0, nil)
	if _, err := u.Search(context.Background(), "   ", 5); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSearchUsesCache(t *testing.T) {
	index, embedder, _ := newTestIndex(t)
	seedIndex(t, index, map[string]string{"Cached content here.": "a.pdf"})

	qc := cache.NewQueryCache(10, time.Minute)
	u := NewRetrieveUseCase(index, nil, nil, qc, 0, nil)

	if _, err := u.Search(context.Background(), "cached content", 5); err != nil {
		t.Fatal(err)
	}
	embedsAfterFirst := embedder.calls

	if _, err := u.Search(context.Background(), "cached content", 5); err != nil {
		t.Fatal(err)
	}
	if embedder.calls != embedsAfterFirst {
		t.Error("expected second search served from cache without embedding")
	}
}

func TestSearchCacheInvalidatedByIndexMutation(t *testing.T) {
	index, embedder, _ := newTestIndex(t)
	seedIndex(t, index, map[string]string{"Original content here.": "a.pdf"})

	qc := cache.NewQueryCache(10, time.Minute)
	index.AttachCache(qc)
	u := NewRetrieveUseCase(index, nil, nil, qc, 0, nil)

	if _, err := u.Search(context.Background(), "original content", 5); err != nil {
		t.Fatal(err)
	}

	// A mutation between searches must bump the cache generation.
	seedIndex(t, index, map[string]string{"Brand new content appears.": "b.pdf"})
	embedsBefore := embedder.calls

	results, err := u.Search(context.Background(), "original content", 5)
	if err != nil {
		t.Fatal(err)
	}
	if embedder.calls == embedsBefore {
		t.Error("expected a fresh search after index mutation, got cached results")
	}
	if len(results) != 2 {
		t.Errorf("expected both entries visible after re-search, got %d", len(results))
	}
}

func TestExpandStopsOnOracleNo(t *testing.T) {
	index, _, _ := newTestIndex(t)
	texts := make(map[string]string)
	for i := 0; i < 20; i++ {
		texts[fmt.Sprintf("Safety note number %d about harness checks.", i)] = "notes.pdf"
	}
	seedIndex(t, index, texts)

	oracle := &mockLLM{responses: []string{"Yes", "No"}}
	u := NewRetrieveUseCase(index, nil, oracle, nil, 0, nil)

	results, err := u.Expand(context.Background(), "harness checks", 5, 5, 20)
	if err != nil {
		t.Fatal(err)
	}
	if oracle.callCount() != 2 {
		t.Errorf("expected 2 oracle calls, got %d", oracle.callCount())
	}
	// One widening happened after the "Yes".
	if len(results) != 10 {
		t.Errorf("expected 10 held results after one expansion, got %d", len(results))
	}
}

func TestExpandBoundsOracleCalls(t *testing.T) {
	index, _, _ := newTestIndex(t)
	texts := make(map[string]string)
	for i := 0; i < 50; i++ {
		texts[fmt.Sprintf("Incident record %d with unique details %d.", i, i*i)] = "records.csv"
	}
	seedIndex(t, index, texts)

	oracle := &mockLLM{} // always answers "ok", never "no"
	u := NewRetrieveUseCase(index, nil, oracle, nil, 0, nil)

	initialK, step, maxK := 5, 5, 30
	results, err := u.Expand(context.Background(), "incident record", initialK, step, maxK)
	if err != nil {
		t.Fatal(err)
	}

	maxCalls := (maxK - initialK) / step
	if oracle.callCount() > maxCalls {
		t.Errorf("oracle called %d times, budget is %d", oracle.callCount(), maxCalls)
	}
	if len(results) > maxK {
		t.Errorf("expected at most %d results, got %d", maxK, len(results))
	}
}

func TestExpandStopsOnExhaustion(t *testing.T) {
	index, _, _ := newTestIndex(t)
	seedIndex(t, index, map[string]string{
		"Only one.": "a.pdf",
		"Only two.": "a.pdf",
		"Only three.": "a.pdf",
	})

	oracle := &mockLLM{} // always relevant
	u := NewRetrieveUseCase(index, nil, oracle, nil, 0, nil)

	results, err := u.Expand(context.Background(), "only", 2, 2, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("expected all 3 rows after exhaustion, got %d", len(results))
	}
	// 2 -> 4 returns 3 rows (new), 4 -> 6 returns 3 rows (no new): the
	// loop must have stopped there.
	if oracle.callCount() > 2 {
		t.Errorf("expected expansion to stop on exhaustion, oracle called %d times", oracle.callCount())
	}
}

func TestExpandOracleErrorFailsSafe(t *testing.T) {
	index, _, _ := newTestIndex(t)
	texts := make(map[string]string)
	for i := 0; i < 10; i++ {
		texts[fmt.Sprintf("Entry %d.", i)] = "a.pdf"
	}
	seedIndex(t, index, texts)

	oracle := &mockLLM{err: fmt.Errorf("oracle down")}
	u := NewRetrieveUseCase(index, nil, oracle, nil, 0, nil)

	results, err := u.Expand(context.Background(), "entry", 3, 3, 9)
	if err != nil {
		t.Fatalf("oracle failure must not surface as an error, got %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected initial result set held on oracle failure, got %d", len(results))
	}
}
