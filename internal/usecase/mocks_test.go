package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"docrag/internal/port"
)

// hashEmbedder is a deterministic bag-of-words embedder: tokens hash
// into a fixed number of buckets and the vector is L2-normalized, so
// cosine similarity tracks term overlap.
type hashEmbedder struct {
	dim   int
	calls int
	fail  bool
}

func newHashEmbedder(dim int) *hashEmbedder {
	return &hashEmbedder{dim: dim}
}

func (e *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.fail {
		return nil, fmt.Errorf("embedder unavailable")
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, e.dim)
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(strings.Trim(tok, ".,!?\"'")))
			v[int(h.Sum32())%e.dim]++
		}
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range v {
				v[j] = float32(float64(v[j]) / norm)
			}
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *hashEmbedder) Dimension() int    { return e.dim }
func (e *hashEmbedder) ModelName() string { return "hash-embedder" }

// memStore is an in-memory port.VectorStore with error injection.
type memStore struct {
	mu        sync.Mutex
	entries   map[string]port.Entry
	failing   bool
	dimension int
}

func newMemStore(dimension int) *memStore {
	return &memStore{
		entries:   make(map[string]port.Entry),
		dimension: dimension,
	}
}

func (s *memStore) Upsert(entries []port.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return fmt.Errorf("store unavailable")
	}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

func (s *memStore) Search(vector []float32, k int) ([]port.SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, fmt.Errorf("store unavailable")
	}

	hits := make([]port.SearchHit, 0, len(s.entries))
	for _, e := range s.entries {
		hits = append(hits, port.SearchHit{Entry: e, Score: cosine(vector, e.Vector)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *memStore) DeleteBySource(source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, fmt.Errorf("store unavailable")
	}
	removed := 0
	for id, e := range s.entries {
		if e.Source == source {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memStore) All() ([]port.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]port.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *memStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *memStore) Close() error { return nil }

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// mockLLM replays scripted responses and records every call.
type mockLLM struct {
	mu        sync.Mutex
	responses []string // consumed in order; "" simulates an empty stage output
	err       error
	calls     int
	roles     []string
	prompts   []string
}

func (m *mockLLM) Chat(_ context.Context, role, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.roles = append(m.roles, role)
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "ok", nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *mockLLM) ModelName() string { return "mock-llm" }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// stubReranker returns fixed scores by document text.
type stubReranker struct {
	scores map[string]float64
	err    error
	calls  int
}

func (r *stubReranker) Score(_ context.Context, _ string, documents []string) ([]float64, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	scores := make([]float64, len(documents))
	for i, d := range documents {
		scores[i] = r.scores[d]
	}
	return scores, nil
}

func (r *stubReranker) ModelName() string { return "stub-reranker" }
