package rerank

import "context"

// OverlapReranker is a local term-overlap scorer used when no external
// cross-encoder is configured. Scores are the fraction of query terms
// present in the document, in [0,1].
type OverlapReranker struct{}

func NewOverlapReranker() *OverlapReranker {
	return &OverlapReranker{}
}

// Score returns the query-term overlap fraction for each document.
func (r *OverlapReranker) Score(_ context.Context, query string, documents []string) ([]float64, error) {
	queryTerms := tokenizeSimple(query)

	scores := make([]float64, len(documents))
	for i, doc := range documents {
		if len(queryTerms) == 0 {
			// No usable terms: preserve the incoming order.
			scores[i] = 1.0 - float64(i)*0.01
			continue
		}
		scores[i] = termOverlap(queryTerms, doc)
	}
	return scores, nil
}

// ModelName returns the model name.
func (r *OverlapReranker) ModelName() string {
	return "term-overlap"
}

// tokenizeSimple performs basic word tokenization, lowercasing and
// keeping terms of two or more word characters.
func tokenizeSimple(text string) map[string]int {
	terms := make(map[string]int)
	word := ""
	for _, r := range text {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			word += string(r)
		} else {
			if len(word) >= 2 {
				terms[word]++
			}
			word = ""
		}
	}
	if len(word) >= 2 {
		terms[word]++
	}
	return terms
}

// termOverlap calculates the fraction of query terms present in the document.
func termOverlap(queryTerms map[string]int, doc string) float64 {
	docTerms := tokenizeSimple(doc)
	if len(docTerms) == 0 {
		return 0
	}

	matches := 0
	for term := range queryTerms {
		if _, exists := docTerms[term]; exists {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTerms))
}
