package domain

import (
	"crypto/md5"
	"encoding/hex"
)

// Document is a span of extracted text with its source-file label,
// as produced by the file extractors before chunking.
type Document struct {
	Text   string
	Source string
}

// Chunk is the unit of embedding and retrieval. Immutable once created.
type Chunk struct {
	Text        string
	Source      string
	Fingerprint string
}

// NewChunk builds a chunk and computes its content fingerprint.
func NewChunk(text, source string) Chunk {
	return Chunk{
		Text:        text,
		Source:      source,
		Fingerprint: Fingerprint(text),
	}
}

// Fingerprint returns the stable content hash used for duplicate detection.
func Fingerprint(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Tier is a coarse relevancy bucket derived from the normalized score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Tier thresholds are tuned policy values, not derived quantities.
const (
	tierHighThreshold   = 0.75
	tierMediumThreshold = 0.6
)

// TierFor maps a normalized similarity score in [0,1] to a relevancy tier.
func TierFor(normScore float64) Tier {
	switch {
	case normScore >= tierHighThreshold:
		return TierHigh
	case normScore >= tierMediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// ScoredResult is one ranked retrieval result. RerankScore is only
// meaningful when Reranked is true; when set it replaces the normalized
// similarity score as the ordering key (higher is more relevant, range
// unspecified by the reranking model).
type ScoredResult struct {
	Chunk       Chunk
	RawScore    float64
	NormScore   float64
	RerankScore float64
	Reranked    bool
	Tier        Tier
}

// OrderingScore returns the score the result list is sorted by.
func (r ScoredResult) OrderingScore() float64 {
	if r.Reranked {
		return r.RerankScore
	}
	return r.NormScore
}

// AnalysisState tags the lifecycle of a background analysis request.
type AnalysisState string

const (
	AnalysisPending AnalysisState = "pending"
	AnalysisRunning AnalysisState = "running"
	AnalysisDone    AnalysisState = "done"
	AnalysisFailed  AnalysisState = "failed"
)

// AnalysisStatus is the shared progress cell published by a background
// analysis worker and consumed by the polling read path. Only one analysis
// is observable at a time; a superseding request cancels the previous one.
type AnalysisStatus struct {
	ID       string         `json:"id"`
	State    AnalysisState  `json:"state"`
	Progress int            `json:"progress"`
	Results  []ScoredResult `json:"-"`
	Report   string         `json:"report,omitempty"`
	Error    string         `json:"error,omitempty"`
}
