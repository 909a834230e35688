// Package ranker scores documents against an expanded query with Okapi
// BM25. Scoring is a pure function of the query and an immutable index, so
// concurrent calls need no coordination.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// Index is the read side of the inverted index the scorer needs.
type Index interface {
	Postings(term string) index.PostingList
	DocumentLength(docID string) (int, error)
	DocumentCount() int
	AverageDocumentLength() float64
}

// Params are the BM25 free parameters.
type Params struct {
	K1 float64 `json:"k1"`
	B  float64 `json:"b"`
}

func DefaultParams() Params {
	return Params{K1: 1.2, B: 0.75}
}

func ParamsFromConfig(cfg config.ScoringConfig) Params {
	return Params{K1: cfg.K1, B: cfg.B}
}

// Validate rejects k1 <= 0 and b outside (0, 1].
func (p Params) Validate() error {
	if !(p.K1 > 0) || math.IsInf(p.K1, 0) {
		return apperrors.InvalidConfigf("k1 must be > 0, got %v", p.K1)
	}
	if !(p.B > 0) || p.B > 1 {
		return apperrors.InvalidConfigf("b must be in (0, 1], got %v", p.B)
	}
	return nil
}

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// RankedResult is ordered by Score descending, DocID ascending on ties.
type RankedResult []ScoredDoc

// Top returns the first k entries, or all of them when fewer exist.
func (r RankedResult) Top(k int) RankedResult {
	if k < 0 || len(r) <= k {
		return r
	}
	return r[:k]
}

func (r RankedResult) DocIDs() []string {
	ids := make([]string, len(r))
	for i, d := range r {
		ids[i] = d.DocID
	}
	return ids
}

// Sort orders r by score descending then DocID ascending.
func Sort(r RankedResult) {
	sort.Slice(r, func(i, j int) bool {
		if r[i].Score != r[j].Score {
			return r[i].Score > r[j].Score
		}
		return r[i].DocID < r[j].DocID
	})
}

type Scorer struct {
	params Params
}

func NewScorer(p Params) (*Scorer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{params: p}, nil
}

func (s *Scorer) Params() Params {
	return s.params
}

// Score returns every document sharing at least one term with eq, ranked.
// Documents with no overlapping term are absent, not scored as zero.
func (s *Scorer) Score(eq parser.ExpandedQuery, idx Index) RankedResult {
	n := idx.DocumentCount()
	avgdl := idx.AverageDocumentLength()
	scores := make(map[string]float64)
	for _, wt := range eq.WeightedTerms() {
		postings := idx.Postings(wt.Term)
		if len(postings) == 0 {
			continue
		}
		idf := IDF(n, len(postings))
		for _, p := range postings {
			dl, err := idx.DocumentLength(p.DocID)
			if err != nil {
				continue
			}
			scores[p.DocID] += wt.Weight * idf * s.tfNorm(float64(p.Frequency), float64(dl), avgdl)
		}
	}
	result := make(RankedResult, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	Sort(result)
	return result
}

// IDF is ln((N - n + 0.5) / (n + 0.5) + 1), which stays positive for
// terms present in every document.
func IDF(totalDocs int, docFreq int) float64 {
	N, df := float64(totalDocs), float64(docFreq)
	return math.Log((N-df+0.5)/(df+0.5) + 1)
}

func (s *Scorer) tfNorm(tf float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	k1, b := s.params.K1, s.params.B
	return tf * (k1 + 1) / (tf + k1*(1-b+b*docLength/avgDocLength))
}
