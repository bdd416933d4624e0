package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"docrag/internal/port"
)

var bucketEntries = []byte("entries")

// BoltStore implements port.VectorStore on top of BoltDB. Entries are
// persisted in a single bucket keyed by fingerprint and mirrored into an
// in-memory map for brute-force cosine search; adequate for corpus sizes
// this tool targets.
type BoltStore struct {
	db        *bbolt.DB
	dimension int

	mu      sync.RWMutex
	entries map[string]storedEntry
}

type storedEntry struct {
	Vector []float32 `json:"v"`
	Text   string    `json:"t"`
	Source string    `json:"s"`
}

// NewBoltStore opens (or creates) the store at path and loads all
// persisted entries into memory.
func NewBoltStore(path string, dimension int) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create entries bucket: %w", err)
	}

	s := &BoltStore{
		db:        db,
		dimension: dimension,
		entries:   make(map[string]storedEntry),
	}
	if err := s.loadEntries(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	return s, nil
}

func (s *BoltStore) loadEntries() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			s.entries[string(k)] = stored
			return nil
		})
	})
}

// Upsert adds or updates entries. Writing under an existing fingerprint
// overwrites the previous entry.
func (s *BoltStore) Upsert(entries []port.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return fmt.Errorf("entries bucket not found")
		}

		for _, e := range entries {
			if len(e.Vector) != s.dimension {
				return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(e.Vector))
			}
			stored := storedEntry{Vector: e.Vector, Text: e.Text, Source: e.Source}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(e.ID), data); err != nil {
				return err
			}
			s.entries[e.ID] = stored
		}
		return nil
	})
}

// Search returns the k nearest entries by cosine similarity.
func (s *BoltStore) Search(vector []float32, k int) ([]port.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(vector))
	}
	if len(s.entries) == 0 {
		return nil, nil
	}

	hits := make([]port.SearchHit, 0, len(s.entries))
	for id, e := range s.entries {
		hits = append(hits, port.SearchHit{
			Entry: port.Entry{ID: id, Vector: e.Vector, Text: e.Text, Source: e.Source},
			Score: cosineSimilarity(vector, e.Vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteBySource removes all entries tagged with the given source label.
func (s *BoltStore) DeleteBySource(source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, e := range s.entries {
		if e.Source == source {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			delete(s.entries, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// All returns every persisted entry.
func (s *BoltStore) All() ([]port.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]port.Entry, 0, len(s.entries))
	for id, e := range s.entries {
		entries = append(entries, port.Entry{ID: id, Vector: e.Vector, Text: e.Text, Source: e.Source})
	}
	return entries, nil
}

// Count returns the number of entries in the store.
func (s *BoltStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
